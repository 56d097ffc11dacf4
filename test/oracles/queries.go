package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_dispute_ownership",
			SQL: `SELECT d.id FROM disputes d
                  JOIN payments p ON p.id = d.payment_id
                  WHERE d.citizen_id <> p.citizen_id`,
		},
		{
			Name: "O2_decision_fields_consistent",
			SQL: `SELECT id FROM disputes
                  WHERE (status = 'pending' AND (admin_response IS NOT NULL OR resolved_by_admin_id IS NOT NULL))
                     OR (status IN ('approved','rejected') AND resolved_by_admin_id IS NULL)`,
		},
		{
			Name: "O3_amount_fixed_point",
			SQL:  `SELECT id FROM payments WHERE amount <= 0 OR amount <> round(amount, 2)`,
		},
		{
			Name: "O4_resolver_is_admin",
			SQL: `SELECT d.id FROM disputes d
                  JOIN users u ON u.id = d.resolved_by_admin_id
                  WHERE u.role <> 'admin'`,
		},
		{
			Name: "O5_recorder_is_admin",
			SQL: `SELECT p.id FROM payments p
                  JOIN users u ON u.id = p.recorded_by_admin_id
                  WHERE u.role <> 'admin'`,
		},
		{
			Name: "O6_period_in_range",
			SQL: `SELECT id FROM payments
                  WHERE period_month NOT BETWEEN 1 AND 12 OR period_year < 2000`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
