// internal/models/tables.go
package models

import (
	"context"
	"database/sql"
)

// TableReleaseResult lists which tables were freed and which could not be.
type TableReleaseResult struct {
	Released []string `json:"releasedTableIds"`
	Failed   []string `json:"failedTableIds"`
}

// ReleaseTables frees every distinct table in tableIDs that still points at
// orderID, one statement per table. A failure on one table does not stop
// the rest; onFailure is called for each one that errors.
func ReleaseTables(ctx context.Context, db execer, orderID string, tableIDs []string, onFailure func(tableID string, err error)) TableReleaseResult {
	res := TableReleaseResult{Released: []string{}, Failed: []string{}}
	for _, id := range DistinctTableIDs(tableIDs) {
		_, err := db.ExecContext(ctx,
			`UPDATE restaurant_tables SET status = 'available', order_id = NULL, updated_at = now() WHERE id = $1 AND order_id = $2`,
			id, orderID)
		if err != nil {
			res.Failed = append(res.Failed, id)
			if onFailure != nil {
				onFailure(id, err)
			}
			continue
		}
		res.Released = append(res.Released, id)
	}
	return res
}

var _ execer = (*sql.DB)(nil)
