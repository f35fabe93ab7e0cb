package repository

import (
	"context"
	"fmt"

	"tokoku/marketplace/internal/apperror"
	"tokoku/marketplace/internal/model"
)

// BuyerExists reports whether a buyer row exists for id.
func (r *MarketRepository) BuyerExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM buyers WHERE id = $1)", id)
}

// SellerExists reports whether a seller row exists for id.
func (r *MarketRepository) SellerExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS (SELECT 1 FROM sellers WHERE id = $1)", id)
}

func (r *MarketRepository) exists(ctx context.Context, query, id string) (bool, error) {
	var found bool
	if err := r.getExecutor(ctx).QueryRow(ctx, query, id).Scan(&found); err != nil {
		return false, apperror.Store(err, "failed to look up profile")
	}
	return found, nil
}

// ClaimIdentity reserves id for role across both profile tables. It returns
// false when the identity is already held, by either role.
func (r *MarketRepository) ClaimIdentity(ctx context.Context, id string, role model.Role) (bool, error) {
	tag, err := r.getExecutor(ctx).Exec(ctx,
		"INSERT INTO identities (id, role) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", id, string(role))
	if err != nil {
		return false, apperror.Store(err, "failed to claim identity")
	}
	return tag.RowsAffected() == 1, nil
}

// InsertProfile writes the role-specific row. The identity must already be claimed.
func (r *MarketRepository) InsertProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	var table string
	switch p.Role {
	case model.RoleBuyer:
		table = "buyers"
	case model.RoleSeller:
		table = "sellers"
	default:
		return model.Profile{}, apperror.Validation("unknown role %q", p.Role)
	}

	query := fmt.Sprintf("INSERT INTO %s (id, username, role) VALUES ($1, $2, $3) RETURNING id, username, role", table)
	var out model.Profile
	var role string
	err := r.getExecutor(ctx).QueryRow(ctx, query, p.ID, p.Username, string(p.Role)).Scan(&out.ID, &out.Username, &role)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Profile{}, apperror.Conflict(err, "profile %s already exists", p.ID)
		}
		return model.Profile{}, apperror.Store(err, "failed to create profile")
	}
	out.Role = model.Role(role)
	return out, nil
}
