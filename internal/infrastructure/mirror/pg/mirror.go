package pgmirror

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/senda-network/senda-daemon/internal/core/domain"
	"github.com/senda-network/senda-daemon/internal/core/ports"
)

const (
	insecureDataSourceTemplate = "postgresql://%s:%s@%s:%d/%s?sslmode=disable"
)

//go:embed migrations/*.sql
var migrations embed.FS

type DbConfig struct {
	DbUser     string
	DbPassword string
	DbHost     string
	DbPort     int
	DbName     string
}

func (c DbConfig) DataSource() string {
	return fmt.Sprintf(
		insecureDataSourceTemplate,
		c.DbUser, c.DbPassword, c.DbHost, c.DbPort, c.DbName,
	)
}

type mirror struct {
	pgxPool *pgxpool.Pool
}

// NewMirror connects to the postgres instance at the given url and brings its
// schema up to date before returning.
func NewMirror(ctx context.Context, dataSource string) (ports.Mirror, error) {
	if err := migrateDb(dataSource); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to migrate mirror db")
	}

	pgxPool, err := pgxpool.Connect(ctx, dataSource)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to mirror db")
	}

	return &mirror{pgxPool}, nil
}

func (m *mirror) UpsertEscrow(
	ctx context.Context, escrow ports.EscrowSnapshot,
) error {
	return m.execTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(
			ctx, upsertEscrowQuery,
			escrow.EscrowID, escrow.Sender, escrow.Receiver,
			int64(escrow.DepositCount), escrow.State, escrow.CreatedAt,
		)
		return pkgerrors.Wrapf(err, "upsert escrow %s", escrow.EscrowID)
	})
}

func (m *mirror) UpsertLot(ctx context.Context, lot ports.LotSnapshot) error {
	sigs, err := json.Marshal(lot.Signatures)
	if err != nil {
		return err
	}

	return m.execTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureEscrowQuery, lot.EscrowID); err != nil {
			return pkgerrors.Wrapf(err, "ensure escrow %s", lot.EscrowID)
		}
		_, err := tx.Exec(
			ctx, upsertLotQuery,
			lot.LotID, lot.EscrowID, int64(lot.Index), lot.Depositor,
			lot.Counterparty, int64(lot.Amount), lot.Asset, lot.Policy,
			lot.State, sigs, int64(lot.Version), lot.UpdatedAt,
		)
		return pkgerrors.Wrapf(err, "upsert lot %s", lot.LotID)
	})
}

func (m *mirror) GetLot(
	ctx context.Context, lotID string,
) (*ports.LotSnapshot, error) {
	var (
		lot                    ports.LotSnapshot
		index, amount, version int64
		sigs                   []byte
	)
	err := m.pgxPool.QueryRow(ctx, selectLotQuery, lotID).Scan(
		&lot.LotID, &lot.EscrowID, &index, &lot.Depositor, &lot.Counterparty,
		&amount, &lot.Asset, &lot.Policy, &lot.State, &sigs, &version,
		&lot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLotNotFound, lotID)
		}
		return nil, err
	}
	if err := json.Unmarshal(sigs, &lot.Signatures); err != nil {
		return nil, pkgerrors.Wrap(err, "malformed lot signatures")
	}
	lot.Index = uint64(index)
	lot.Amount = uint64(amount)
	lot.Version = uint64(version)
	return &lot, nil
}

func (m *mirror) Close() {
	m.pgxPool.Close()
}

func (m *mirror) execTx(ctx context.Context, txBody func(pgx.Tx) error) error {
	conn, err := m.pgxPool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		err := tx.Rollback(ctx)
		switch {
		case errors.Is(err, pgx.ErrTxClosed):
			return
		case err != nil:
			log.Errorf("unable to rollback mirror db tx: %v", err)
		}
	}()

	if err := txBody(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func migrateDb(dataSource string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}

	pg := postgres.Postgres{}
	d, err := pg.Open(dataSource)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", d)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
