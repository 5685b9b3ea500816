package store

import (
	"context"
	"database/sql"

	"gridgame/internal/apperr"
	"gridgame/internal/model"
)

// leaderboardQuery computes wins, losses, draws, and efficiency per
// player across every FINISHED session, in one raw SQL pass rather than
// pulling sessions into Go to aggregate - the dataset this aggregates
// over only ever grows, so the grouping belongs in the database.
// distinct_players dedupes by users.id, not by the per-session
// host_name/guest_name snapshot, since the same user can create
// sessions under different display names and must still collapse to
// one leaderboard row; the display name itself comes from the users
// table, the canonical source of a player's current name.
const leaderboardQuery = `
WITH participants AS (
	SELECT host_id AS user_id FROM sessions WHERE status = 'FINISHED'
	UNION
	SELECT guest_id FROM sessions WHERE status = 'FINISHED' AND guest_id IS NOT NULL
),
distinct_players AS (
	SELECT u.id AS user_id, u.name AS name FROM users u
	JOIN (SELECT DISTINCT user_id FROM participants) p ON p.user_id = u.id
),
wins AS (
	SELECT winner AS user_id, COUNT(*) AS n
	FROM sessions WHERE status = 'FINISHED' AND winner IS NOT NULL
	GROUP BY winner
),
losses AS (
	SELECT user_id, COUNT(*) AS n FROM (
		SELECT host_id AS user_id FROM sessions
			WHERE status = 'FINISHED' AND winner IS NOT NULL AND winner <> host_id
		UNION ALL
		SELECT guest_id AS user_id FROM sessions
			WHERE status = 'FINISHED' AND winner IS NOT NULL AND guest_id IS NOT NULL AND winner <> guest_id
	) losers GROUP BY user_id
),
draws AS (
	SELECT user_id, COUNT(*) AS n FROM (
		SELECT host_id AS user_id FROM sessions WHERE status = 'FINISHED' AND draw = true
		UNION ALL
		SELECT guest_id AS user_id FROM sessions
			WHERE status = 'FINISHED' AND draw = true AND guest_id IS NOT NULL
	) drawers GROUP BY user_id
),
move_counts AS (
	SELECT session_id, COUNT(*) AS n FROM moves GROUP BY session_id
),
efficiency AS (
	SELECT s.winner AS user_id, AVG(mc.n / 2.0) AS n
	FROM sessions s JOIN move_counts mc ON mc.session_id = s.id
	WHERE s.status = 'FINISHED' AND s.winner IS NOT NULL
	GROUP BY s.winner
)
SELECT dp.user_id, dp.name,
	COALESCE(w.n, 0), COALESCE(l.n, 0), COALESCE(d.n, 0), e.n
FROM distinct_players dp
LEFT JOIN wins w ON w.user_id = dp.user_id
LEFT JOIN losses l ON l.user_id = dp.user_id
LEFT JOIN draws d ON d.user_id = dp.user_id
LEFT JOIN efficiency e ON e.user_id = dp.user_id
`

// LeaderboardAggregate ranks players by metric over all FINISHED
// sessions. Sort order follows spec: win_count sorts by wins DESC,
// losses ASC, name ASC; efficiency sorts ascending with null last,
// name as the final tiebreak.
func (s *Store) LeaderboardAggregate(ctx context.Context, metric model.LeaderboardMetric, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	orderBy := " ORDER BY wins DESC, losses ASC, name ASC LIMIT $1"
	if metric == model.MetricEfficiency {
		orderBy = " ORDER BY efficiency IS NULL, efficiency ASC, name ASC LIMIT $1"
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM ("+leaderboardQuery+
		") ranked(user_id, name, wins, losses, draws, efficiency)"+orderBy, limit)
	if err != nil {
		return nil, s.markDegraded(apperr.Internal("leaderboard aggregate", err))
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		var efficiency sql.NullFloat64
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.Wins, &e.Losses, &e.Draws, &efficiency); err != nil {
			return nil, s.markDegraded(apperr.Internal("scan leaderboard entry", err))
		}
		if efficiency.Valid {
			e.Efficiency = &efficiency.Float64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
