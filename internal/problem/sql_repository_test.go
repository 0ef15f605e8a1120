package problem

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"judgeworker/internal/db"
	appErr "judgeworker/pkg/errors"
)

// fakeDatabase serves canned rows and records the queries it saw.
type fakeDatabase struct {
	problemRow   []interface{} // id, problem_id; nil means no row
	problemErr   error
	caseRows     [][]interface{} // id, input_data, output_data
	casesErr     error
	lastCasesArg interface{}
}

func (f *fakeDatabase) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	if f.problemErr != nil {
		return &fakeRow{err: f.problemErr}
	}
	if f.problemRow == nil {
		return &fakeRow{err: sql.ErrNoRows}
	}
	return &fakeRow{values: f.problemRow}
}

func (f *fakeDatabase) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	if len(args) > 0 {
		f.lastCasesArg = args[0]
	}
	if f.casesErr != nil {
		return nil, f.casesErr
	}
	return &fakeRows{rows: f.caseRows}, nil
}

func (f *fakeDatabase) Ping(ctx context.Context) error { return nil }
func (f *fakeDatabase) Close() error                   { return nil }

type fakeRow struct {
	values []interface{}
	err    error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(dest, r.values)
}

type fakeRows struct {
	rows [][]interface{}
	pos  int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	return scanInto(dest, r.rows[r.pos-1])
}

func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return nil }

func scanInto(dest []interface{}, values []interface{}) error {
	for i, v := range values {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		default:
			return errors.New("unsupported scan destination")
		}
	}
	return nil
}

func TestLoadProblem(t *testing.T) {
	fake := &fakeDatabase{
		problemRow: []interface{}{int64(11), int64(10)},
		caseRows: [][]interface{}{
			{int64(1), "1 2", "3"},
			{int64(2), "5 7", "12"},
		},
	}
	repo, err := NewSQLRepository(fake)
	if err != nil {
		t.Fatalf("NewSQLRepository: %v", err)
	}

	p, err := repo.LoadProblem(context.Background(), 10)
	if err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	if p.ID != 11 || p.ProblemID != 10 {
		t.Fatalf("unexpected problem: %+v", p)
	}
	if len(p.TestCases) != 2 {
		t.Fatalf("expected 2 test cases, got %d", len(p.TestCases))
	}
	if p.TestCases[0].InputData != "1 2" || p.TestCases[1].OutputData != "12" {
		t.Fatalf("unexpected test cases: %+v", p.TestCases)
	}
}

func TestLoadProblemJoinsByPrimaryKey(t *testing.T) {
	fake := &fakeDatabase{
		problemRow: []interface{}{int64(11), int64(10)},
		caseRows:   [][]interface{}{{int64(1), "in", "out"}},
	}
	repo, _ := NewSQLRepository(fake)

	if _, err := repo.LoadProblem(context.Background(), 10); err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	if fake.lastCasesArg != int64(11) {
		t.Fatalf("expected test cases fetched by PK 11, got %v", fake.lastCasesArg)
	}
}

func TestLoadProblemNotFound(t *testing.T) {
	repo, _ := NewSQLRepository(&fakeDatabase{})

	_, err := repo.LoadProblem(context.Background(), 404)
	if err == nil {
		t.Fatal("expected error for missing problem")
	}
	if !appErr.Is(err, appErr.ProblemNotFound) {
		t.Fatalf("expected ProblemNotFound, got code %d", appErr.GetCode(err))
	}
}

func TestLoadProblemNoTestCases(t *testing.T) {
	fake := &fakeDatabase{
		problemRow: []interface{}{int64(11), int64(10)},
	}
	repo, _ := NewSQLRepository(fake)

	_, err := repo.LoadProblem(context.Background(), 10)
	if err == nil {
		t.Fatal("expected error for missing test cases")
	}
	if !appErr.Is(err, appErr.TestCasesMissing) {
		t.Fatalf("expected TestCasesMissing, got code %d", appErr.GetCode(err))
	}
}

func TestLoadProblemDatabaseError(t *testing.T) {
	fake := &fakeDatabase{
		problemRow: []interface{}{int64(11), int64(10)},
		casesErr:   errors.New("connection reset"),
	}
	repo, _ := NewSQLRepository(fake)

	_, err := repo.LoadProblem(context.Background(), 10)
	if err == nil {
		t.Fatal("expected database error")
	}
	if !appErr.Is(err, appErr.DatabaseError) {
		t.Fatalf("expected DatabaseError, got code %d", appErr.GetCode(err))
	}
}

func TestNewSQLRepositoryRequiresDatabase(t *testing.T) {
	if _, err := NewSQLRepository(nil); err == nil {
		t.Fatal("expected error for nil database")
	}
}
