package problem

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"judgeworker/internal/db"
	appErr "judgeworker/pkg/errors"
)

const (
	problemQuery = `SELECT id, problem_id FROM problems WHERE problem_id = ? ORDER BY id LIMIT 1`

	// test cases reference the problem's primary key, not the external id
	testCasesQuery = `SELECT id, input_data, output_data FROM test_cases WHERE problem_id = ? ORDER BY id ASC`
)

// SQLRepository implements Repository on the db layer.
type SQLRepository struct {
	db db.Database
}

// NewSQLRepository builds a repository over an open database.
func NewSQLRepository(database db.Database) (*SQLRepository, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &SQLRepository{db: database}, nil
}

// LoadProblem fetches the problem row by external id and its test cases
// in two queries. Misses return ProblemNotFound or TestCasesMissing;
// everything else is a DatabaseError.
func (r *SQLRepository) LoadProblem(ctx context.Context, problemID int64) (*Problem, error) {
	var p Problem
	row := r.db.QueryRow(ctx, problemQuery, problemID)
	if err := row.Scan(&p.ID, &p.ProblemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.Newf(appErr.ProblemNotFound, "problem %d not found", problemID)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query problem %d", problemID)
	}

	rows, err := r.db.Query(ctx, testCasesQuery, p.ID)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "query test cases for problem %d", problemID)
	}
	defer rows.Close()

	for rows.Next() {
		var tc TestCase
		if err := rows.Scan(&tc.ID, &tc.InputData, &tc.OutputData); err != nil {
			return nil, appErr.Wrapf(err, appErr.DatabaseError, "scan test case for problem %d", problemID)
		}
		p.TestCases = append(p.TestCases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "iterate test cases for problem %d", problemID)
	}

	if len(p.TestCases) == 0 {
		return nil, appErr.Newf(appErr.TestCasesMissing, "no test cases found for problem %d", problemID)
	}
	return &p, nil
}
