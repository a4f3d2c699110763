package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	serveradapter "github.com/hylla/syncnotes/internal/adapters/server"
	servercommon "github.com/hylla/syncnotes/internal/adapters/server/common"
	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/domain"
	"github.com/hylla/syncnotes/internal/report"
)

// serveRunner starts the HTTP+MCP serve flow.
var serveRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// copyToClipboard writes the share link to the system clipboard.
var copyToClipboard = clipboard.WriteAll

const renderWidth = 96

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	statusBadges = map[domain.Status]lipgloss.Style{
		domain.StatusDraft:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		domain.StatusAnalyzed:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		domain.StatusPublished: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
)

func statusBadge(status domain.Status) string {
	style, ok := statusBadges[status]
	if !ok {
		return string(status)
	}
	return style.Render(strings.ToUpper(string(status)))
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var in app.CreateMeetingInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				meeting, err := sess.service.CreateMeeting(ctx, in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created meeting %s\n", meeting.ID)
				for _, p := range meeting.Participants {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s <%s>\n", p.Name, p.Email)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "meeting title")
	cmd.Flags().StringVar(&in.Agenda, "agenda", "", "meeting agenda")
	cmd.Flags().StringVar(&in.Date, "date", "", "meeting date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.Time, "time", "", "meeting time (HH:MM)")
	cmd.Flags().StringSliceVarP(&in.Participants, "participant", "p", nil, "participant name (repeatable or comma-separated)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List meetings, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				meetings, err := sess.service.ListMeetings(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(meetings) == 0 {
					_, _ = fmt.Fprintln(out, dimStyle.Render("no meetings"))
					return nil
				}
				for _, m := range meetings {
					done, total := m.TaskProgress()
					_, _ = fmt.Fprintf(out, "%s  %s  %s %s  %s\n",
						m.ID,
						statusBadge(m.Status),
						m.Date, m.Time,
						titleStyle.Render(m.Title),
					)
					if total > 0 {
						_, _ = fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("    tasks %d/%d", done, total)))
					}
				}
				return nil
			})
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Render a meeting report in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				meeting, err := sess.service.GetMeeting(ctx, args[0])
				if err != nil {
					return err
				}
				if err := printMeeting(cmd, meeting); err != nil {
					return err
				}
				if n := len(meeting.AccessLogs); n > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "view logged as %s\n", meeting.AccessLogs[n-1].ViewerRole)
				}
				return nil
			})
		},
	}
}

func printMeeting(cmd *cobra.Command, meeting domain.Meeting) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(meeting.Title), statusBadge(meeting.Status))
	_, _ = fmt.Fprintln(out, report.RenderTerminal(report.Markdown(meeting), renderWidth))
	if len(meeting.Tasks) > 0 {
		_, _ = fmt.Fprintln(out, dimStyle.Render("task ids"))
	}
	for _, task := range meeting.Tasks {
		mark := " "
		if task.Status == domain.TaskCompleted {
			mark = "x"
		}
		_, _ = fmt.Fprintf(out, "[%s] %s %s (%s)\n", mark, task.ID, task.Title, task.Assignee)
	}
	return nil
}

func newProcessCmd(opts *rootOptions) *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "process <meeting-id> <audio-file>",
		Short: "Analyze a meeting recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}
			if strings.TrimSpace(mimeType) == "" {
				mimeType = audioMIMEType(args[1])
			}
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				meeting, err := sess.service.ProcessAudio(ctx, args[0], app.AudioInput{Data: data, MIMEType: mimeType})
				if err != nil {
					return err
				}
				done, total := meeting.TaskProgress()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "analyzed meeting %s (%d/%d tasks done)\n", meeting.ID, done, total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "audio media type (default: from file extension)")
	return cmd
}

// audioMIMEType guesses the recording media type from its extension.
func audioMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".webm":
		return "audio/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return strings.Split(guessed, ";")[0]
	}
	return ""
}

func newToggleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <meeting-id> <task-id>",
		Short: "Flip an action item between pending and completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				meeting, toggled, err := sess.service.ToggleTask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !toggled {
					return fmt.Errorf("task %q not found in meeting %s", args[1], meeting.ID)
				}
				for _, task := range meeting.Tasks {
					if task.ID == args[1] {
						_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", task.Title, task.Status)
					}
				}
				return nil
			})
		},
	}
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var copyLink bool
	cmd := &cobra.Command{
		Use:   "publish <meeting-id>",
		Short: "Publish an analyzed meeting and send the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				result, err := sess.service.Publish(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "published %s\n", result.Meeting.ID)
				_, _ = fmt.Fprintf(out, "share link: %s\n", result.ShareLink)
				if result.NotifyErr != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", result.NotifyErr)
				}
				if copyLink {
					if err := copyToClipboard(result.ShareLink); err != nil {
						sess.logger.Warn("copy share link failed", "err", err)
					} else {
						_, _ = fmt.Fprintln(out, dimStyle.Render("link copied to clipboard"))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&copyLink, "copy", false, "copy the share link to the clipboard")
	return cmd
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <meeting-id> <question...>",
		Short: "Ask a question about an analyzed meeting",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				answer, err := sess.service.AskMeeting(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			})
		},
	}
}

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <share-link>",
		Short: "Open a published meeting through its share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meetingID, err := app.ParseShareLink(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				meeting, err := sess.service.ResolveShareLink(ctx, meetingID)
				if err != nil {
					if errors.Is(err, app.ErrNotFound) {
						return fmt.Errorf("meeting %s is not available", meetingID)
					}
					return err
				}
				return printMeeting(cmd, meeting)
			})
		},
	}
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "report <meeting-id>",
		Short: "Export the plain-text meeting report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				meeting, err := sess.service.GetMeeting(ctx, args[0])
				if err != nil {
					return err
				}
				doc := report.Document(meeting)
				if strings.TrimSpace(outPath) == "" {
					_, _ = fmt.Fprint(cmd.OutOrStdout(), doc)
					return nil
				}
				if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, share links, and MCP tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session) error {
				cfg := serveradapter.Config{
					HTTPBind:      sess.cfg.Server.HTTPBind,
					APIEndpoint:   sess.cfg.Server.APIEndpoint,
					MCPEndpoint:   sess.cfg.Server.MCPEndpoint,
					ServerName:    opts.appName,
					ServerVersion: version,
				}
				if strings.TrimSpace(bind) != "" {
					cfg.HTTPBind = bind
				}
				sess.logger.Info("serving", "bind", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint)
				return serveRunner(ctx, cfg, serveradapter.Dependencies{
					Meetings: servercommon.NewAppServiceAdapter(sess.service),
					Logger:   sess.logger,
				})
			})
		},
	}
	cmd.Flags().StringVar(&bind, "http", "", "override server.http_bind")
	return cmd
}
