package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"kisansight/api/internal/farm"
)

const schema = `
create table if not exists farm_reports (
  id          uuid primary key,
  created_at  timestamptz not null default now(),
  language    text not null default 'en',
  state       text not null,
  district    text not null,
  input_json  jsonb not null,
  result_json jsonb not null
);
create index if not exists farm_reports_created_at on farm_reports (created_at desc);

create table if not exists diagnoses (
  id          uuid primary key,
  created_at  timestamptz not null default now(),
  language    text not null default 'en',
  image_hash  text not null,
  mime_type   text not null,
  result_json jsonb not null
);
create index if not exists diagnoses_created_at on diagnoses (created_at desc);
`

// ReportRepo stores history in Postgres. Inputs and results are JSONB.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// Open connects through the pgx stdlib driver, pings, and creates the tables.
func Open(ctx context.Context, dsn string) (*ReportRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	r := NewReportRepo(db)
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *ReportRepo) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type reportInput struct {
	Location farm.LocationData `json:"location"`
	Soil     farm.SoilData     `json:"soil"`
	Climate  farm.ClimateData  `json:"climate"`
}

func (r *ReportRepo) SavePrediction(ctx context.Context, rep farm.FarmReport) (farm.FarmReport, error) {
	rep = stampReport(rep)
	in, err := json.Marshal(reportInput{Location: rep.Location, Soil: rep.Soil, Climate: rep.Climate})
	if err != nil {
		return rep, err
	}
	out, err := json.Marshal(rep.Prediction)
	if err != nil {
		return rep, err
	}
	const q = `
insert into farm_reports (id, created_at, language, state, district, input_json, result_json)
values ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.DB.ExecContext(ctx, q, rep.ID, rep.Timestamp, rep.Language,
		rep.Location.State, rep.Location.District, in, out)
	if err != nil {
		return rep, fmt.Errorf("save prediction: %w", err)
	}
	return rep, nil
}

func (r *ReportRepo) SaveDiagnosis(ctx context.Context, d farm.DiagnosisRecord) (farm.DiagnosisRecord, error) {
	d = stampDiagnosis(d)
	out, err := json.Marshal(d.Diagnosis)
	if err != nil {
		return d, err
	}
	const q = `
insert into diagnoses (id, created_at, language, image_hash, mime_type, result_json)
values ($1,$2,$3,$4,$5,$6)`
	if _, err := r.DB.ExecContext(ctx, q, d.ID, d.Timestamp, d.Language, d.ImageHash, d.MIMEType, out); err != nil {
		return d, fmt.Errorf("save diagnosis: %w", err)
	}
	return d, nil
}

func (r *ReportRepo) RecentPredictions(ctx context.Context, limit int) ([]farm.FarmReport, error) {
	const q = `
select id::text, created_at, language, input_json, result_json
from farm_reports
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	defer rows.Close()

	var out []farm.FarmReport
	for rows.Next() {
		var (
			rep     farm.FarmReport
			in, res []byte
		)
		if err := rows.Scan(&rep.ID, &rep.Timestamp, &rep.Language, &in, &res); err != nil {
			return nil, err
		}
		var ri reportInput
		if err := json.Unmarshal(in, &ri); err != nil {
			// broken row, skip it
			continue
		}
		if err := json.Unmarshal(res, &rep.Prediction); err != nil {
			continue
		}
		rep.Location, rep.Soil, rep.Climate = ri.Location, ri.Soil, ri.Climate
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *ReportRepo) RecentDiagnoses(ctx context.Context, limit int) ([]farm.DiagnosisRecord, error) {
	const q = `
select id::text, created_at, language, image_hash, mime_type, result_json
from diagnoses
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("recent diagnoses: %w", err)
	}
	defer rows.Close()

	var out []farm.DiagnosisRecord
	for rows.Next() {
		var (
			d   farm.DiagnosisRecord
			res []byte
		)
		if err := rows.Scan(&d.ID, &d.Timestamp, &d.Language, &d.ImageHash, &d.MIMEType, &res); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(res, &d.Diagnosis); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *ReportRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

func (r *ReportRepo) Close() error { return r.DB.Close() }
