package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
)

type ProfileService struct {
	store ProfileStore
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Registration is the outcome of Register. Created is false, with a nil
// Profile, when the identity was already registered under either role.
type Registration struct {
	Profile *model.Profile
	Created bool
}

// Register creates a buyer or seller profile for identity. Registering an
// identity that already holds a profile, of any role, is a no-op, not an error.
func (s *ProfileService) Register(ctx context.Context, identity, username string, role model.Role) (Registration, error) {
	identity = strings.TrimSpace(identity)
	username = strings.TrimSpace(username)
	if identity == "" {
		return Registration{}, apperror.Validation("id is required")
	}
	if username == "" {
		return Registration{}, apperror.Validation("username is required")
	}
	if !role.Valid() {
		return Registration{}, apperror.Validation("unknown role %q", role)
	}

	registered, err := s.isRegistered(ctx, identity)
	if err != nil {
		return Registration{}, err
	}
	if registered {
		return Registration{}, nil
	}

	var created *model.Profile
	err = s.store.RunAtomic(ctx, func(ctx context.Context) error {
		claimed, err := s.store.ClaimIdentity(ctx, identity, role)
		if err != nil {
			return err
		}
		if !claimed {
			// Lost a race with a concurrent registration.
			return nil
		}
		p, err := s.store.InsertProfile(ctx, model.Profile{ID: identity, Username: username, Role: role})
		if err != nil {
			return err
		}
		created = &p
		return nil
	})
	if err != nil {
		return Registration{}, err
	}
	return Registration{Profile: created, Created: created != nil}, nil
}

// isRegistered checks the buyer and seller tables independently.
func (s *ProfileService) isRegistered(ctx context.Context, identity string) (bool, error) {
	var asBuyer, asSeller bool

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		asBuyer, err = s.store.BuyerExists(ctx, identity)
		return err
	})
	g.Go(func() error {
		var err error
		asSeller, err = s.store.SellerExists(ctx, identity)
		return err
	})
	if err := g.Wait(); err != nil {
		return false, err
	}
	return asBuyer || asSeller, nil
}
