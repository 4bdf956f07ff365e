package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dperkosan/iam-service/internal/auth"
	"github.com/dperkosan/iam-service/internal/ids"
)

type organizations struct {
	q querier
}

func (o organizations) Create(ctx context.Context, name string) (auth.Organization, error) {
	var org auth.Organization
	err := o.q.QueryRowContext(ctx, `
		insert into organizations(id, name)
		values ($1,$2)
		returning id, name, created_at, updated_at
	`, ids.New(), name).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return auth.Organization{}, err
	}
	return org, nil
}

func (o organizations) Find(ctx context.Context, id string) (auth.Organization, error) {
	var org auth.Organization
	err := o.q.QueryRowContext(ctx, `
		select id, name, created_at, updated_at
		from organizations
		where id=$1
	`, id).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Organization{}, auth.ErrOrganizationNotFound
	}
	if err != nil {
		return auth.Organization{}, err
	}
	return org, nil
}
