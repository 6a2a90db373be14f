// ./internal/state/postgres.go
package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/omnipool-labs/xnav/internal/logger"
	"github.com/omnipool-labs/xnav/internal/types"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so the same store code
// serves direct and transactional access.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Postgres is the lib/pq-backed Store implementation.
type Postgres struct {
	db *sql.DB
	q  queryer
	l  zerolog.Logger
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db, l: logger.GetForComponent("state_pg")}
}

func parseInt(raw string) (sdkmath.Int, error) {
	v, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid integer value in store: %q", raw)
	}
	return v, nil
}

func (p *Postgres) getField(field string) (sdkmath.Int, error) {
	var raw string
	err := p.q.QueryRow(`SELECT value FROM pool_fields WHERE field = $1;`, field).Scan(&raw)
	if err == sql.ErrNoRows {
		return sdkmath.ZeroInt(), nil
	}
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("failed to read field %s: %w", field, err)
	}
	return parseInt(raw)
}

func (p *Postgres) setField(field string, v sdkmath.Int) error {
	_, err := p.q.Exec(`
		INSERT INTO pool_fields (field, value, version, updated_at)
		VALUES ($1, $2, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (field) DO UPDATE
		SET value = EXCLUDED.value,
		    version = pool_fields.version + 1,
		    updated_at = CURRENT_TIMESTAMP;`, field, v.String())
	if err != nil {
		return fmt.Errorf("failed to write field %s: %w", field, err)
	}
	return nil
}

// InitPool seeds the singleton pool record. Calling it against an already
// seeded database is an error.
func (p *Postgres) InitPool(pool types.PoolState) error {
	if pool.TotalSupply.IsNil() {
		pool.TotalSupply = sdkmath.ZeroInt()
	}
	if pool.UnitaryValue.IsNil() {
		pool.UnitaryValue = sdkmath.ZeroInt()
	}
	if pool.TotalSupply.IsNegative() {
		return types.ErrNegativeSupply
	}
	res, err := p.q.Exec(`
		INSERT INTO pool_info (id, pool_address, base_token, decimals)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING;`,
		pool.Address.Hex(), pool.BaseToken.Hex(), int16(pool.Decimals))
	if err != nil {
		return fmt.Errorf("failed to insert pool info: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pool already initialized")
	}
	if err := p.setField(FieldTotalSupply, pool.TotalSupply); err != nil {
		return err
	}
	return p.setField(FieldUnitaryValue, pool.UnitaryValue)
}

func (p *Postgres) Pool() (types.PoolState, error) {
	var (
		addr, base string
		decimals   int16
	)
	err := p.q.QueryRow(`SELECT pool_address, base_token, decimals FROM pool_info WHERE id = 1;`).
		Scan(&addr, &base, &decimals)
	if err == sql.ErrNoRows {
		return types.PoolState{}, fmt.Errorf("pool not initialized")
	}
	if err != nil {
		return types.PoolState{}, fmt.Errorf("failed to read pool info: %w", err)
	}
	pool := types.PoolState{
		Address:   common.HexToAddress(addr),
		BaseToken: common.HexToAddress(base),
		Decimals:  uint8(decimals),
	}
	if pool.TotalSupply, err = p.getField(FieldTotalSupply); err != nil {
		return types.PoolState{}, err
	}
	if pool.UnitaryValue, err = p.getField(FieldUnitaryValue); err != nil {
		return types.PoolState{}, err
	}
	return pool, nil
}

func (p *Postgres) SetUnitaryValue(v sdkmath.Int) error {
	return p.setField(FieldUnitaryValue, v)
}

func (p *Postgres) SetTotalSupply(v sdkmath.Int) error {
	if v.IsNegative() {
		return types.ErrNegativeSupply
	}
	return p.setField(FieldTotalSupply, v)
}

func (p *Postgres) VirtualBalance(token common.Address) (sdkmath.Int, error) {
	return p.getField(VirtualBalanceField(token))
}

func (p *Postgres) SetVirtualBalance(token common.Address, v sdkmath.Int) error {
	return p.setField(VirtualBalanceField(token), v)
}

func (p *Postgres) VirtualSupply() (sdkmath.Int, error) {
	return p.getField(FieldVirtualSupply)
}

func (p *Postgres) SetVirtualSupply(v sdkmath.Int) error {
	return p.setField(FieldVirtualSupply, v)
}

func (p *Postgres) ChainNavSpread(chain types.ChainID) (sdkmath.Int, error) {
	return p.getField(ChainNavSpreadField(chain))
}

func (p *Postgres) SetChainNavSpread(chain types.ChainID, v sdkmath.Int) error {
	return p.setField(ChainNavSpreadField(chain), v)
}

func (p *Postgres) ClearChainNavSpread(chain types.ChainID) error {
	return p.setField(ChainNavSpreadField(chain), sdkmath.ZeroInt())
}

func (p *Postgres) ActiveTokens() ([]common.Address, error) {
	rows, err := p.q.Query(`SELECT token FROM active_tokens WHERE live = TRUE ORDER BY inserted_at, token;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tokens: %w", err)
	}
	defer rows.Close()

	var tokens []common.Address
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan active token: %w", err)
		}
		tokens = append(tokens, common.HexToAddress(raw))
	}
	return tokens, rows.Err()
}

func (p *Postgres) AddActiveToken(token common.Address) error {
	var live int
	if err := p.q.QueryRow(`SELECT COUNT(*) FROM active_tokens WHERE live = TRUE;`).Scan(&live); err != nil {
		return fmt.Errorf("failed to count active tokens: %w", err)
	}
	if live >= MaxActiveTokens {
		return types.ErrTooManyActiveTokens
	}
	_, err := p.q.Exec(`
		INSERT INTO active_tokens (token, live) VALUES ($1, TRUE)
		ON CONFLICT (token) DO UPDATE SET live = TRUE, inserted_at = CURRENT_TIMESTAMP;`, token.Hex())
	if err != nil {
		return fmt.Errorf("failed to add active token: %w", err)
	}
	return nil
}

func (p *Postgres) RemoveActiveToken(token common.Address) error {
	// Removed tokens keep their row under live = FALSE, the persistent
	// counterpart of the removed-slot sentinel.
	_, err := p.q.Exec(`UPDATE active_tokens SET live = FALSE WHERE token = $1;`, token.Hex())
	if err != nil {
		return fmt.Errorf("failed to remove active token: %w", err)
	}
	return nil
}

func (p *Postgres) FieldVersion(field string) (uint64, error) {
	var version uint64
	err := p.q.QueryRow(`SELECT version FROM pool_fields WHERE field = $1;`, field).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read field version for %s: %w", field, err)
	}
	return version, nil
}

func (p *Postgres) AppendAuditEvent(ev types.AuditEvent) error {
	var token any
	if ev.Token != nil {
		token = ev.Token.Hex()
	}
	_, err := p.q.Exec(`
		INSERT INTO audit_events (kind, token, delta, resulting, event_timestamp)
		VALUES ($1, $2, $3, $4, $5);`,
		string(ev.Kind), token, ev.Delta.String(), ev.Resulting.String(), ev.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

func (p *Postgres) IsMessageProcessed(id string) (bool, error) {
	var one int
	err := p.q.QueryRow(`SELECT 1 FROM processed_messages WHERE message_id = $1;`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check processed message: %w", err)
	}
	return true, nil
}

func (p *Postgres) MarkMessageProcessed(id string) error {
	_, err := p.q.Exec(`INSERT INTO processed_messages (message_id) VALUES ($1);`, id)
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}

// WithTransaction runs fn against a transaction-scoped view of the store.
func (p *Postgres) WithTransaction(fn func(Store) error) error {
	if p.db == nil {
		return fmt.Errorf("nested transactions are not supported")
	}
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	scoped := &Postgres{q: tx, l: p.l}
	if err := fn(scoped); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			p.l.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
