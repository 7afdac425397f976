package main

import (
	"alumni-chat/auth"
	"alumni-chat/domain/search"
	"alumni-chat/services"
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
)

const usage = `usage: alumni <command> [args]

  inbox                         conversation list, unread first
  chat <peer>                   interactive conversation
  send <peer> <text>            send one message
  edit <peer> <id> <text>       edit one of your messages
  delete <peer> <id>            delete one of your messages
  search <peer> <terms> [--limit n]
  broadcast [text]              read the shared room, or post to it
  testimonials                  list testimonials
  testimonial-add [flags]       post a testimonial
  rate <id> <stars>             rate a testimonial from 1 to 5
  photo <id> <file>             attach a photo to a testimonial
  profile [userID]              show a profile
  profile-update [flags]        update your own profile
`

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2, nil
	}
	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return 1, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(config)
	if err != nil {
		return 1, err
	}
	a.startSeenWorker(ctx)
	defer a.close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "inbox":
		err = a.runInbox(ctx)
	case "chat":
		if len(rest) != 1 {
			return 2, fmt.Errorf("usage: alumni chat <peer>")
		}
		err = a.runChat(ctx, rest[0], bufio.NewScanner(os.Stdin))
	case "send":
		if len(rest) < 2 {
			return 2, fmt.Errorf("usage: alumni send <peer> <text>")
		}
		err = a.runSend(ctx, rest[0], strings.Join(rest[1:], " "))
	case "edit":
		if len(rest) < 3 {
			return 2, fmt.Errorf("usage: alumni edit <peer> <id> <text>")
		}
		err = a.runEdit(ctx, rest[0], rest[1], strings.Join(rest[2:], " "))
	case "delete":
		if len(rest) != 2 {
			return 2, fmt.Errorf("usage: alumni delete <peer> <id>")
		}
		err = a.runDelete(ctx, rest[0], rest[1])
	case "search":
		if len(rest) < 2 {
			return 2, fmt.Errorf("usage: alumni search <peer> <terms> [--limit n]")
		}
		err = a.runSearch(ctx, rest[0], search.NewSearchQuery(strings.Join(rest[1:], " ")))
	case "broadcast":
		err = a.runBroadcast(ctx, strings.Join(rest, " "))
	case "testimonials":
		err = a.runTestimonials(ctx)
	case "testimonial-add":
		err = a.runTestimonialAdd(ctx, rest)
	case "rate":
		if len(rest) != 2 {
			return 2, fmt.Errorf("usage: alumni rate <id> <stars>")
		}
		stars, convErr := strconv.Atoi(rest[1])
		if convErr != nil {
			return 2, fmt.Errorf("stars must be a number: %w", convErr)
		}
		err = a.runRate(ctx, rest[0], stars)
	case "photo":
		if len(rest) != 2 {
			return 2, fmt.Errorf("usage: alumni photo <id> <file>")
		}
		err = a.runPhoto(ctx, rest[0], rest[1])
	case "profile":
		userID, _ := a.session.CurrentUserID()
		if len(rest) == 1 {
			userID = rest[0]
		}
		err = a.runProfile(ctx, userID)
	case "profile-update":
		err = a.runProfileUpdate(ctx, rest)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2, fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}

func (a *app) runInbox(ctx context.Context) error {
	rows, err := a.inbox.Inbox(ctx, a.session)
	if err != nil {
		return err
	}
	a.out.inbox(rows)
	return nil
}

func (a *app) runSend(ctx context.Context, peerID, text string) error {
	chat, err := a.chatSession(peerID)
	if err != nil {
		return err
	}
	chat.SetDraft(text)
	return chat.Send(ctx)
}

func (a *app) openChat(ctx context.Context, peerID string) (*services.ChatSession, error) {
	chat, err := a.chatSession(peerID)
	if err != nil {
		return nil, err
	}
	if err := chat.Reload(ctx); err != nil {
		return nil, err
	}
	return chat, nil
}

func (a *app) runEdit(ctx context.Context, peerID, id, text string) error {
	chat, err := a.openChat(ctx, peerID)
	if err != nil {
		return err
	}
	if err := chat.Select(id); err != nil {
		return err
	}
	return chat.EditSelected(ctx, text)
}

func (a *app) runDelete(ctx context.Context, peerID, id string) error {
	chat, err := a.openChat(ctx, peerID)
	if err != nil {
		return err
	}
	if err := chat.Select(id); err != nil {
		return err
	}
	return chat.DeleteSelected(ctx)
}

func (a *app) runSearch(ctx context.Context, peerID string, q *search.Query) error {
	chat, err := a.openChat(ctx, peerID)
	if err != nil {
		return err
	}
	found, err := chat.Search(ctx, q.Terms, q.Limit)
	if err != nil {
		return err
	}
	a.out.messages(found, a.loc)
	return nil
}

// runBroadcast posts text when given, then prints the room.
func (a *app) runBroadcast(ctx context.Context, text string) error {
	if text != "" {
		if _, err := a.broadcast.Post(ctx, a.session, text); err != nil {
			return err
		}
	}
	msgs, err := a.broadcast.List(ctx, 50)
	if err != nil {
		return err
	}
	a.out.broadcasts(msgs, a.loc)
	return nil
}

func (a *app) runTestimonials(ctx context.Context) error {
	list, err := a.testimonials.List(ctx)
	if err != nil {
		return err
	}
	a.out.testimonials(list)
	return nil
}

func (a *app) runTestimonialAdd(ctx context.Context, args []string) error {
	var form services.TestimonialForm
	fs := flag.NewFlagSet("testimonial-add", flag.ContinueOnError)
	fs.StringVar(&form.Name, "name", "", "full name")
	fs.StringVar(&form.Email, "email", "", "contact email")
	fs.StringVar(&form.GraduationYear, "year", "", "graduation year")
	fs.StringVar(&form.Designation, "designation", "", "current position")
	fs.StringVar(&form.Company, "company", "", "current company")
	fs.StringVar(&form.LinkedIn, "linkedin", "", "LinkedIn profile url")
	fs.StringVar(&form.RollNo, "roll", "", "roll number")
	fs.StringVar(&form.Message, "message", "", "testimonial text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.testimonials.Add(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out.w, "Testimonial posted:", id)
	return nil
}

func (a *app) runRate(ctx context.Context, id string, stars int) error {
	avg, err := a.testimonials.Rate(ctx, id, stars)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out.w, "Average rating: %.1f\n", avg)
	return nil
}

func (a *app) runPhoto(ctx context.Context, id, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	photoID, err := a.testimonials.AttachPhoto(ctx, id, data)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out.w, "Photo attached:", photoID)
	return nil
}

func (a *app) runProfile(ctx context.Context, userID string) error {
	u, err := a.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	a.out.profile(u)
	return nil
}

func (a *app) runProfileUpdate(ctx context.Context, args []string) error {
	userID, err := a.session.RequireUserID()
	if err != nil {
		return err
	}
	current, err := a.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	form := auth.ProfileForm{
		Name:           current.Name,
		RegisterNumber: current.RegisterNumber,
		Email:          current.Email,
		Role:           string(current.Role),
		Gender:         current.Gender,
		Department:     current.Department,
		Batch:          current.Batch,
		Phone:          current.Phone,
	}
	fs := flag.NewFlagSet("profile-update", flag.ContinueOnError)
	fs.StringVar(&form.Name, "name", form.Name, "display name")
	fs.StringVar(&form.RegisterNumber, "register", form.RegisterNumber, "register number")
	fs.StringVar(&form.Email, "email", form.Email, "email")
	fs.StringVar(&form.Role, "role", form.Role, "alumni or student")
	fs.StringVar(&form.Gender, "gender", form.Gender, "gender")
	fs.StringVar(&form.Department, "department", form.Department, "department")
	fs.StringVar(&form.Batch, "batch", form.Batch, "batch year")
	fs.StringVar(&form.Phone, "phone", form.Phone, "phone in E.164 format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.profiles.Update(ctx, a.session, userID, form)
	if err != nil {
		return err
	}
	a.out.profile(u)
	return nil
}
