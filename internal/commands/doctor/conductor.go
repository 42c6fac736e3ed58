package doctor

import (
	"context"
	"fmt"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/zome"
)

// ConnectFunc returns a caller for the configured conductor.
type ConnectFunc func(ctx context.Context) (zome.Caller, error)

// ConductorCheck verifies the conductor is reachable and answers zome calls.
type ConductorCheck struct {
	url     string
	connect ConnectFunc
}

// NewConductorCheck creates a new conductor check.
func NewConductorCheck(url string, connect ConnectFunc) *ConductorCheck {
	return &ConductorCheck{url: url, connect: connect}
}

func (c *ConductorCheck) Name() string {
	return "Conductor"
}

func (c *ConductorCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	caller, err := c.connect(ctx)
	if err != nil {
		result.add("Connect", StatusFail, err.Error())
		return result
	}
	result.add("Connect", StatusPass, c.url)

	var contacts []hash.Hash
	req := zome.Request{Zome: zome.Contacts, Fn: zome.FnListAddedAgents}
	if err := caller.Call(ctx, req, &contacts); err != nil {
		result.add(req.String(), StatusFail, err.Error())
		return result
	}
	result.add(req.String(), StatusPass, fmt.Sprintf("%d contacts", len(contacts)))

	var latest zome.LatestData
	req = zome.Request{Zome: zome.Aggregator, Fn: zome.FnLatestData, Payload: zome.LatestInput{BatchSize: 1}}
	if err := caller.Call(ctx, req, &latest); err != nil {
		result.add(req.String(), StatusFail, err.Error())
		return result
	}

	status := StatusPass
	detail := fmt.Sprintf("signed in as %s, %d groups", latest.UserInfo.Username, len(latest.Groups))
	if latest.UserInfo.Username == "" {
		status = StatusWarn
		detail = "no profile registered for this agent"
	}
	result.add(req.String(), status, detail)

	return result
}
