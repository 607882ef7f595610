package mcp

// In this file: route planning prompt templates.

import (
	"context"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerPrompts registers the scenic route planning prompts.
func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcplib.NewPrompt("scenic_hiking_route",
		mcplib.WithPromptDescription("Plan a scenic hiking route between two named locations."),
		mcplib.WithArgument("from_location",
			mcplib.ArgumentDescription("Name of the starting location."),
			mcplib.RequiredArgument(),
		),
		mcplib.WithArgument("to_location",
			mcplib.ArgumentDescription("Name of the destination."),
			mcplib.RequiredArgument(),
		),
	), promptHandler("hiking", "foot-hiking"))

	s.mcp.AddPrompt(mcplib.NewPrompt("scenic_biking_route",
		mcplib.WithPromptDescription("Plan a scenic biking route between two named locations."),
		mcplib.WithArgument("from_location",
			mcplib.ArgumentDescription("Name of the starting location."),
			mcplib.RequiredArgument(),
		),
		mcplib.WithArgument("to_location",
			mcplib.ArgumentDescription("Name of the destination."),
			mcplib.RequiredArgument(),
		),
	), promptHandler("biking", "cycling-regular"))
}

// promptHandler returns a prompt handler that renders the scenic route
// planning instructions for the given activity and routing profile.
func promptHandler(activity, profile string) func(context.Context, mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return func(_ context.Context, req mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
		from := req.Params.Arguments["from_location"]
		to := req.Params.Arguments["to_location"]
		if from == "" || to == "" {
			return nil, errors.New("from_location and to_location are required")
		}
		text := fmt.Sprintf(`Plan a scenic %[1]s route from %[2]s to %[3]s.

1. Use search_location_coordinates to resolve %[2]s and %[3]s into
   [longitude, latitude] coordinates. Pick the highest ranked match unless it
   is clearly the wrong place.
2. Use search_known_routes with route_type %[4]q to check whether officially
   signposted routes pass near the start and the destination. Prefer following
   a known route when one connects the two points.
3. Create the route with create_route_from_to and route_type %[4]q, adding
   waypoints for viewpoints, lakes or summits worth passing.
4. Summarise the route for the user: distance, notable places along the way,
   and where to download the generated GPX file.`, activity, from, to, profile)

		return mcplib.NewGetPromptResult(
			fmt.Sprintf("Scenic %s route from %s to %s", activity, from, to),
			[]mcplib.PromptMessage{
				mcplib.NewPromptMessage(mcplib.RoleUser, mcplib.NewTextContent(text)),
			},
		), nil
	}
}
