// Package platform bundles the module clients of one TeselaGen session.
//
//	p, err := platform.New(cfg)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	for aliquot, err := range p.Build.Aliquots(ctx, build.ListParams{}) {
//		...
//	}
package platform

import (
	"context"
	"fmt"

	"github.com/Sternrassler/teselagen-client/pkg/build"
	"github.com/Sternrassler/teselagen-client/pkg/client"
	"github.com/Sternrassler/teselagen-client/pkg/design"
	"github.com/Sternrassler/teselagen-client/pkg/discover"
	"github.com/Sternrassler/teselagen-client/pkg/test"
)

// Platform shares one authenticated session across every module client.
// The active laboratory set through API applies to all of them.
type Platform struct {
	API      *client.Client
	Build    *build.Client
	Test     *test.Client
	Discover *discover.Client
	Design   *design.Client
}

// New creates the shared session and its module clients.
func New(cfg client.Config) (*Platform, error) {
	api, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create platform client: %w", err)
	}
	return FromClient(api), nil
}

// FromClient wraps an existing session.
func FromClient(api *client.Client) *Platform {
	return &Platform{
		API:      api,
		Build:    build.New(api),
		Test:     test.New(api),
		Discover: discover.New(api),
		Design:   design.New(api),
	}
}

// Login authenticates with the configured credentials and, when lab is set,
// selects it by id or name.
func (p *Platform) Login(ctx context.Context, lab client.LabSelector) error {
	if err := p.API.EnsureLogin(ctx); err != nil {
		return err
	}
	if lab.ID == "" && lab.Name == "" {
		return nil
	}
	if _, err := p.API.SelectLaboratory(ctx, lab); err != nil {
		return err
	}
	return nil
}

// Close releases the session's resources.
func (p *Platform) Close() error {
	return p.API.Close()
}
