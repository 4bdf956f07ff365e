package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dperkosan/iam-service/internal/auth"
	"github.com/dperkosan/iam-service/internal/ids"
)

type accounts struct {
	q querier
}

const accountColumns = `id, organization_id, first_name, last_name, email, password_hash, role, email_verified, enabled, created_at, updated_at`

func scanAccount(row *sql.Row) (auth.Account, error) {
	var acc auth.Account
	err := row.Scan(
		&acc.ID, &acc.OrganizationID, &acc.FirstName, &acc.LastName,
		&acc.Email, &acc.PasswordHash, &acc.Role, &acc.EmailVerified,
		&acc.Enabled, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	if err != nil {
		return auth.Account{}, err
	}
	return acc, nil
}

func (a accounts) Create(ctx context.Context, acc auth.Account) (auth.Account, error) {
	acc.ID = ids.New()
	row := a.q.QueryRowContext(ctx, `
		insert into accounts(id, organization_id, first_name, last_name, email, password_hash, role, email_verified, enabled)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		returning `+accountColumns+`
	`, acc.ID, acc.OrganizationID, acc.FirstName, acc.LastName, acc.Email, acc.PasswordHash, acc.Role, acc.EmailVerified, acc.Enabled)

	created, err := scanAccount(row)
	if err != nil {
		return auth.Account{}, mapAccountError(err)
	}
	return created, nil
}

func (a accounts) FindByEmail(ctx context.Context, email, organizationID string) (auth.Account, error) {
	row := a.q.QueryRowContext(ctx, `
		select `+accountColumns+`
		from accounts
		where email=$1 and organization_id=$2
	`, email, organizationID)
	return scanAccount(row)
}

func (a accounts) FindByID(ctx context.Context, id string) (auth.Account, error) {
	row := a.q.QueryRowContext(ctx, `
		select `+accountColumns+`
		from accounts
		where id=$1
	`, id)
	return scanAccount(row)
}

func (a accounts) SetEmailVerified(ctx context.Context, id string) error {
	res, err := a.q.ExecContext(ctx, `
		update accounts set email_verified=true, updated_at=now()
		where id=$1
	`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (a accounts) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := a.q.ExecContext(ctx, `
		update accounts set password_hash=$2, updated_at=now()
		where id=$1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts a zero-row update into a not-found error.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}
