package main

import (
	"alumni-chat/domain"
	"alumni-chat/services"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type printer struct {
	w io.Writer
}

func newPrinter(colours bool) *printer {
	color.Enable = colours
	return &printer{w: os.Stdout}
}

func (p *printer) table(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(p.w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// username paints a name with the hue derived from the user id.
func username(userID, name string) string {
	rgb := color.HslToRgb(float64(domain.UsernameHue(userID))/360, 0.7, 0.6)
	return color.RGB(rgb[0], rgb[1], rgb[2]).Sprint(name)
}

func (p *printer) inbox(rows []services.RankedPeer) {
	table := p.table([]string{"User", "Name", "Role", "Unread"})
	for _, r := range rows {
		unread := ""
		if r.Unread > 0 {
			unread = color.New(color.FgLightWhite, color.BgRed).Render(" " + strconv.Itoa(r.Unread) + " ")
		}
		table.Append([]string{r.User.ID, username(r.User.ID, r.User.Name), r.User.DisplayRole(), unread})
	}
	table.Render()
}

func (p *printer) timeline(items []domain.TimelineItem, viewerID string, loc *time.Location, chat *services.ChatSession) {
	for _, item := range items {
		if item.Separator {
			fmt.Fprintln(p.w, color.New(color.BgBlack, color.FgGreen).Render(" "+item.Day.In(loc).Format("Mon 02 Jan 2006")+" "))
			continue
		}
		m := item.Message
		who := color.FgCyan.Render("them")
		if m.SenderID == viewerID {
			who = color.FgYellow.Render("you ")
		}
		status := ""
		if chat != nil && chat.IsPending(m.ID) {
			status = color.FgGray.Render(" (sending)")
		} else if m.SenderID == viewerID && m.LastSeen != nil {
			status = color.FgGray.Render(" (seen)")
		}
		fmt.Fprintf(p.w, "%s %s %s  %s%s\n", m.CreatedAt.In(loc).Format("15:04"), who, color.FgGray.Render(m.ID), m.Text, status)
	}
}

func (p *printer) messages(msgs []domain.Message, loc *time.Location) {
	table := p.table([]string{"Id", "Date", "From", "Text"})
	for _, m := range msgs {
		table.Append([]string{m.ID, m.CreatedAt.In(loc).Format(time.DateTime), m.SenderID, m.Text})
	}
	table.Render()
}

func (p *printer) broadcasts(msgs []domain.BroadcastMessage, loc *time.Location) {
	for _, m := range msgs {
		sender := username(m.SenderID, m.SenderName)
		if m.SenderRegisterNumber != "" {
			sender += color.FgGray.Render(" (" + m.SenderRegisterNumber + ")")
		}
		fmt.Fprintf(p.w, "%s %s: %s\n", m.CreatedAt.In(loc).Format("02/01 15:04"), sender, m.Text)
	}
}

func (p *printer) testimonials(list []domain.Testimonial) {
	table := p.table([]string{"Id", "Name", "Year", "Position", "Rating", "Message"})
	for _, t := range list {
		table.Append([]string{
			t.ID,
			t.Name,
			t.GraduationYear,
			t.Designation + " @ " + t.Company,
			fmt.Sprintf("%.1f (%d)", t.AverageRating(), len(t.Ratings)),
			t.Message,
		})
	}
	table.Render()
}

func (p *printer) profile(u domain.User) {
	table := p.table([]string{"Field", "Value"})
	table.AppendBulk([][]string{
		{"Id", u.ID},
		{"Name", username(u.ID, u.Name)},
		{"Role", u.DisplayRole()},
		{"Register number", u.RegisterNumber},
		{"Email", u.Email},
		{"Gender", u.Gender},
		{"Department", u.Department},
		{"Batch", u.Batch},
		{"Phone", u.Phone},
	})
	table.Render()
}
