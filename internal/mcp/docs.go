package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `fieldwork drives a ranger's activities from Scheduled to InProgress to Completed.

Core concepts:
- Activity: scheduled fieldwork of one kind. Patrols (patrol, perimeter_patrol) track a route.
- Stamp: the wall-clock time (HH:MM) and coordinates of a start or finish. Both are required.
- Field session: the on-device buffer of an in-progress patrol.
- Finding: an observation with severity and coordinates; linked to a patrol or independent.

Rules of engagement:
1) Call sign_in first. If it reports resumed=true, a patrol is still in progress; continue it.
2) start_activity only works on scheduled activities; finish_activity only on in-progress ones.
3) Route points and findings reach the store immediately. Photos (add_evidence) stay on the
   device until finish_activity and are lost if the app restarts.
4) On SESSION_EXPIRED every field session was dropped; call sign_in with a fresh token.
5) TIMEOUT and NETWORK_ERROR are safe to retry with the same arguments.

Docs:
- fieldwork://docs/lifecycle
- fieldwork://docs/field-sessions
- fieldwork://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "fieldwork://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Activity lifecycle",
		Description: "States, legal transitions and what each transition records.",
		Content: `# Activity lifecycle

scheduled -> in_progress -> completed. There is no way back and no skipping.

| From        | To          | Tool            | Records                                  |
|-------------|-------------|-----------------|------------------------------------------|
| scheduled   | in_progress | start_activity  | start time and coordinates               |
| in_progress | completed   | finish_activity | end time, coordinates, observations      |

- Times are HH:MM or HH:MM:SS as shown on the device clock.
- Coordinates are decimal degrees. A missing latitude or longitude is an error, never zero.
- finish_activity sends the whole field session in one call. Retrying after a timeout is safe:
  buffered items carry client references and the store deduplicates them. A retry that finds
  the activity already completed delivers what is still buffered and returns the stored record.
- Activities without a field session pass their findings, evidence and route points in the
  finish_activity call itself.
- add_route_point and add_finding accept a client_ref. Repeat it when retrying after
  TIMEOUT or NETWORK_ERROR so the item is stored once.
- get_activity and list_activities show the state; lists may be up to 30 seconds old unless
  something was changed through this device.
`,
	},
	{
		URI:         "fieldwork://docs/field-sessions",
		Name:        "docs_field_sessions",
		Title:       "Field sessions",
		Description: "What a patrol buffers, what survives a restart and how resumption works.",
		Content: `# Field sessions

Starting a patrol opens a field session. It holds:

- route points (saved immediately)
- findings (saved immediately)
- evidence photos (kept on the device until finish)

## Restarts

sign_in checks the store for an in-progress activity. If one exists it is reopened with its
route points; photos taken before the restart are gone. Call load_session_findings to
bring back the patrol's findings.

## Abandoning

abandon_session closes the buffer without finishing the activity. Saved items stay in the
store; the activity stays in_progress and is resumed on the next sign_in.
`,
	},
	{
		URI:         "fieldwork://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Tool error codes and how to recover from each.",
		Content: `# Error codes

| Code               | Meaning                                        | Recovery                      |
|--------------------|------------------------------------------------|-------------------------------|
| NOT_SIGNED_IN      | no ranger on this device                       | sign_in                       |
| SESSION_EXPIRED    | the store rejected the token                   | sign_in with a fresh token    |
| VALIDATION_ERROR   | bad or missing input                           | fix the input                 |
| ILLEGAL_TRANSITION | the activity or finding is in the wrong state  | reload and check the state    |
| NO_FIELD_SESSION   | no open buffer for that activity               | start or resume the patrol    |
| TIMEOUT            | the store did not answer in time               | retry                         |
| NETWORK_ERROR      | the store could not be reached                 | retry                         |
| NOT_FOUND          | unknown id                                     | check the id                  |
| FORBIDDEN          | the item belongs to another ranger             | none                          |
| REJECTED           | the store refused the request                  | none                          |
| INVALID_RECORD     | the store sent data the engine cannot use      | report it                     |
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
