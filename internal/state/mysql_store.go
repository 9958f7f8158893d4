package state

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ETAnderson/deskflow/internal/domain"
)

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func dimensionTable(kind domain.DimensionKind) (string, error) {
	switch kind {
	case domain.DimensionAgent:
		return "dim_agents", nil
	case domain.DimensionChannel:
		return "dim_channels", nil
	case domain.DimensionStatus:
		return "dim_statuses", nil
	}
	return "", fmt.Errorf("unknown dimension kind %q", kind)
}

func (s *MySQLStore) FindDimension(ctx context.Context, kind domain.DimensionKind, key string) (uint64, bool, error) {
	table, err := dimensionTable(kind)
	if err != nil {
		return 0, false, err
	}

	var id uint64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM `+table+` WHERE natural_key = ?`, key,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CreateDimension relies on the natural-key unique constraint as the single
// arbiter: a concurrent creator loses the insert but still gets the winning
// row's id back via LAST_INSERT_ID.
func (s *MySQLStore) CreateDimension(ctx context.Context, kind domain.DimensionKind, key, displayName, team string) (uint64, error) {
	table, err := dimensionTable(kind)
	if err != nil {
		return 0, err
	}

	var res sql.Result
	if kind == domain.DimensionAgent {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO dim_agents (natural_key, display_name, team)
			 VALUES (?, ?, NULLIF(?, ''))
			 ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
			key, displayName, team,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO `+table+` (natural_key, display_name)
			 VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
			key, displayName,
		)
	}
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *MySQLStore) FindAgentAlias(ctx context.Context, key string) (uint64, bool, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT agent_id FROM dim_agent_aliases WHERE alias_key = ?`, key,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *MySQLStore) ListAgents(ctx context.Context) ([]AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, display_name, COALESCE(team, ''), COALESCE(predominant_shift, '')
FROM dim_agents
ORDER BY predominant_shift, display_name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentRecord
	for rows.Next() {
		var a AgentRecord
		var shift string
		if err := rows.Scan(&a.ID, &a.Name, &a.Team, &shift); err != nil {
			return nil, err
		}
		a.PredominantShift = domain.Shift(shift)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *MySQLStore) ShiftCounts(ctx context.Context, agentIDs []uint64) ([]AgentShiftCount, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(agentIDs)), ",")
	args := make([]any, 0, len(agentIDs))
	for _, id := range agentIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT agent_id, shift, COUNT(*)
FROM fact_interactions
WHERE agent_id IN (`+placeholders+`)
GROUP BY agent_id, shift
`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AgentShiftCount
	for rows.Next() {
		var c AgentShiftCount
		var shift string
		if err := rows.Scan(&c.AgentID, &shift, &c.Count); err != nil {
			return nil, err
		}
		c.Shift = domain.Shift(shift)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *MySQLStore) UpdateAgentShift(ctx context.Context, agentID uint64, shift domain.Shift) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE dim_agents SET predominant_shift = ? WHERE id = ?`,
		string(shift), agentID,
	)
	return err
}

// InsertInteraction is a single-row transaction: insert, or detect that the
// (dedup_key, agent, timestamp) tuple already exists. Rows with no dedup key
// always insert.
func (s *MySQLStore) InsertInteraction(ctx context.Context, f domain.Interaction) (bool, error) {
	var solution, service any
	if f.SolutionScore != nil {
		solution = f.SolutionScore.String()
	}
	if f.ServiceScore != nil {
		service = f.ServiceScore.String()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO fact_interactions (
	occurred_at, shift, protocol, dedup_key, direction,
	wait_seconds, handle_seconds, solution_score, service_score,
	agent_id, channel_id, status_id
) VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE id = id
`,
		f.OccurredAt, string(f.Shift), f.Protocol, f.DedupKey, f.Direction,
		f.WaitSeconds, f.HandleSeconds, solution, service,
		f.AgentID, f.ChannelID, f.StatusID,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// 1 = inserted; 0 = duplicate key hit the no-op update.
	return n == 1, nil
}

func (s *MySQLStore) UpsertDailyProductivity(ctx context.Context, p domain.DailyProductivity) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO fact_daily_productivity (
	ref_date, clients_served, interactions_handled, requests_closed, agent_id
) VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	clients_served = VALUES(clients_served),
	interactions_handled = VALUES(interactions_handled),
	requests_closed = VALUES(requests_closed)
`,
		p.ReferenceDate.Format("2006-01-02"),
		p.ClientsServed, p.InteractionsHandled, p.RequestsClosed,
		p.AgentID,
	)
	return err
}
