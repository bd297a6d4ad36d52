package mcp

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerTools adds every fieldwork tool to the server. Input schemas are inferred from the
// parameter structs.
func registerTools(server *sdkmcp.Server, h *Handler) {
	// Activities
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_activities",
		Description: "List the signed-in ranger's activities, optionally filtered by state or kind",
	}, h.ListActivities)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_activity",
		Description: "Get one activity with its start and end stamps",
	}, h.GetActivity)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "start_activity",
		Description: "Start a scheduled activity at a time and place. Patrols open a field session.",
	}, h.StartActivity)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "finish_activity",
		Description: "Complete an in-progress activity. Buffered items and any findings, evidence or route points passed here are sent in the same call. Safe to repeat after a network error.",
	}, h.FinishActivity)

	// Field session
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_route_point",
		Description: "Record a GPS fix on an in-progress patrol. Saved to the store immediately.",
	}, h.AddRoutePoint)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_route_point",
		Description: "Delete a route point from the store and the field session",
	}, h.RemoveRoutePoint)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_finding",
		Description: "Report a finding linked to an in-progress patrol. Saved to the store immediately.",
	}, h.AddFinding)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_finding",
		Description: "Delete a finding from the store and the field session",
	}, h.RemoveFinding)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_evidence",
		Description: "Attach a photo to an in-progress patrol. Kept on the device until finish_activity; lost if the app restarts.",
	}, h.AddEvidence)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_evidence",
		Description: "Drop a buffered photo by its ref",
	}, h.RemoveEvidence)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "load_session_findings",
		Description: "Reload the findings of an in-progress patrol from the store into its field session",
	}, h.LoadSessionFindings)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "session_state",
		Description: "Show the open field sessions and whether the sign-in has expired",
	}, h.SessionState)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "abandon_session",
		Description: "Close a field session without finishing the activity. Buffered photos are lost.",
	}, h.AbandonSession)

	// Findings outside activities
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "report_finding",
		Description: "Report an independent finding not linked to any activity",
	}, h.ReportFinding)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_independent_findings",
		Description: "List today's independent findings for the signed-in ranger",
	}, h.ListIndependentFindings)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "transition_finding",
		Description: "Move a finding to in_review or resolved",
	}, h.TransitionFinding)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_follow_up",
		Description: "Append an entry to a finding's follow-up log",
	}, h.AddFollowUp)

	// Identity
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sign_in",
		Description: "Sign in with a bearer token and resume any in-progress patrol",
	}, h.SignIn)
}
