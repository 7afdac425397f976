package main

import (
	"alumni-chat/auth"
	"alumni-chat/infrastructure/grpc/client"
	"alumni-chat/internal"
	"alumni-chat/moderation"
	"alumni-chat/repositories"
	"alumni-chat/runtime/workers"
	"alumni-chat/services"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// app holds every collaborator a command may need. Business logic runs here,
// the server only stores documents.
type app struct {
	config  Config
	log     *slog.Logger
	session auth.Session
	loc     *time.Location
	out     *printer

	conn  *grpc.ClientConn
	store *client.RemoteStore

	messages     *repositories.MessageRepository
	tracker      *services.UnreadTracker
	inbox        *services.InboxService
	profiles     *services.ProfileService
	broadcast    *services.BroadcastService
	testimonials *services.TestimonialService

	supervisor *workers.Supervisor
	seen       *workers.SeenWorker
	seenDone   chan struct{}
}

func newApp(config Config) (*app, error) {
	log := logs.GetLoggerFromString(config.LogLevel)
	session, err := auth.SessionFromToken(config.Token)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ALUMNI_TIMEZONE: %w", err)
	}
	mode, err := services.ParseUnreadMode(config.UnreadMode)
	if err != nil {
		return nil, err
	}
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	censor, err := moderation.NewDefaultModerator(char, log)
	if err != nil {
		return nil, err
	}

	transport := insecure.NewCredentials()
	if !config.Insecure {
		transport = credentials.NewClientTLSFromCert(nil, "")
	}
	conn, err := grpc.NewClient(config.ServerAddr,
		grpc.WithTransportCredentials(transport),
		grpc.WithPerRPCCredentials(auth.BearerCredentials{Token: config.Token, Insecure: config.Insecure}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", config.ServerAddr, err)
	}

	store := client.NewRemoteStore(log, conn)
	users := repositories.NewUserRepository(store)
	messages := repositories.NewMessageRepository(store)
	tracker := services.NewUnreadTracker(log, messages, mode)

	return &app{
		config:       config,
		log:          log,
		session:      session,
		loc:          loc,
		out:          newPrinter(config.Colours),
		conn:         conn,
		store:        store,
		messages:     messages,
		tracker:      tracker,
		inbox:        services.NewInboxService(log, users, tracker),
		profiles:     services.NewProfileService(log, users),
		broadcast:    services.NewBroadcastService(log, repositories.NewBroadcastRepository(store), users, censor),
		testimonials: services.NewTestimonialService(log, repositories.NewTestimonialRepository(store), repositories.NewImageRepository(store), censor, config.MaxPhotoBytes),
	}, nil
}

// startSeenWorker runs the mark-as-seen worker under a supervisor until close.
func (a *app) startSeenWorker(ctx context.Context) *workers.SeenWorker {
	a.seen = workers.NewSeenWorker(a.log, a.tracker, a.config.SeenQueueSize)
	a.supervisor = workers.NewSupervisor(a.log, 0)
	a.supervisor.Add(a.seen)
	a.seenDone = make(chan struct{})
	go func() {
		a.supervisor.Run(ctx)
		close(a.seenDone)
	}()
	return a.seen
}

func (a *app) chatSession(peerID string) (*services.ChatSession, error) {
	deps := services.ChatSessionDeps{
		Log:      a.log,
		Messages: a.messages,
		Searcher: a.store,
		Location: a.loc,
	}
	if a.seen != nil {
		deps.Seen = a.seen
	}
	return services.NewChatSession(a.session, peerID, deps)
}

// close lets queued seen requests land before the connection goes away.
func (a *app) close() {
	if a.seen != nil {
		a.seen.Close()
		select {
		case <-a.seenDone:
		case <-time.After(a.config.CallTimeout):
			a.log.Warn("Seen requests still pending at exit")
			a.supervisor.Stop()
		}
	}
	_ = a.conn.Close()
}
