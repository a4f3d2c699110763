package mcpapi

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/syncnotes/internal/adapters/server/common"
)

var roleOption = mcp.WithString("role", mcp.Description("Caller role, defaults to ADMIN (MEMBER for share links)"), mcp.Enum("ADMIN", "MEMBER"))

// registerMeetingTools registers the meeting read, lifecycle, and chat tools.
func registerMeetingTools(srv *mcpserver.MCPServer, meetings common.MeetingService) {
	srv.AddTool(
		mcp.NewTool(
			"syncnotes.list_meetings",
			mcp.WithDescription("List meetings visible to the caller, newest first."),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ctx, err := withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			rows, err := meetings.ListMeetings(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_meetings", map[string]any{"meetings": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"syncnotes.get_meeting",
			mcp.WithDescription("Return one meeting with its summary, tasks, and mind map."),
			mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting identifier")),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			meetingID, err := req.RequireString("meeting_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ctx, err = withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			meeting, err := meetings.GetMeeting(ctx, meetingID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_meeting", meeting)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"syncnotes.create_meeting",
			mcp.WithDescription("Create a draft meeting."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Meeting title")),
			mcp.WithString("agenda", mcp.Required(), mcp.Description("Meeting agenda")),
			mcp.WithString("date", mcp.Required(), mcp.Description("Date as YYYY-MM-DD")),
			mcp.WithString("time", mcp.Required(), mcp.Description("Time as HH:MM")),
			mcp.WithArray("participants", mcp.Required(), mcp.Description("Participant names"), mcp.WithStringItems()),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ctx, err := withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			meeting, err := meetings.CreateMeeting(ctx, common.CreateMeetingRequest{
				Title:        req.GetString("title", ""),
				Agenda:       req.GetString("agenda", ""),
				Date:         req.GetString("date", ""),
				Time:         req.GetString("time", ""),
				Participants: req.GetStringSlice("participants", nil),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_meeting", meeting)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"syncnotes.process_audio",
			mcp.WithDescription("Analyze a base64-encoded meeting recording and attach the results."),
			mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting identifier")),
			mcp.WithString("audio_base64", mcp.Required(), mcp.Description("Recording bytes, standard base64")),
			mcp.WithString("mime_type", mcp.Required(), mcp.Description("Recording media type, e.g. audio/webm")),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			meetingID, err := req.RequireString("meeting_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			encoded, err := req.RequireString("audio_base64")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			data, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return toolResultFromError(errors.Join(common.ErrInvalidRequest, err)), nil
			}
			ctx, err = withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			meeting, err := meetings.ProcessAudio(ctx, common.ProcessAudioRequest{
				MeetingID: meetingID,
				Data:      data,
				MIMEType:  req.GetString("mime_type", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("process_audio", meeting)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"syncnotes.toggle_task",
			mcp.WithDescription("Flip one action item between pending and completed."),
			mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting identifier")),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task identifier")),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			meetingID, err := req.RequireString("meeting_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			taskID, err := req.RequireString("task_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ctx, err = withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := meetings.ToggleTask(ctx, common.ToggleTaskRequest{MeetingID: meetingID, TaskID: taskID})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("toggle_task", result)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"syncnotes.publish_meeting",
			mcp.WithDescription("Publish an analyzed meeting and send the report to its participants."),
			mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting identifier")),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			meetingID, err := req.RequireString("meeting_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ctx, err = withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := meetings.PublishMeeting(ctx, meetingID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("publish_meeting", result)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"syncnotes.ask_meeting",
			mcp.WithDescription("Ask a question answered from one analyzed meeting's record."),
			mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting identifier")),
			mcp.WithString("question", mcp.Required(), mcp.Description("Question text")),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			meetingID, err := req.RequireString("meeting_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			question, err := req.RequireString("question")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ctx, err = withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			answer, err := meetings.AskMeeting(ctx, common.AskRequest{MeetingID: meetingID, Question: question})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("ask_meeting", answer)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"syncnotes.open_share_link",
			mcp.WithDescription("Open a published meeting through its share link and record the access."),
			mcp.WithString("link", mcp.Required(), mcp.Description("Share link or meeting id")),
			roleOption,
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			link, err := req.RequireString("link")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ctx, err = withRole(ctx, req)
			if err != nil {
				return toolResultFromError(err), nil
			}
			meeting, err := meetings.OpenShareLink(ctx, link)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("open_share_link", meeting)
		},
	)
}
