package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, stage, field, source_dir, output_dir, values_json, status, rendered, skipped, failed, error_message, started_at, finished_at"

const renderColumns = "id, run_id, source_path, output_path, value, stages, status, error_message, duration_ms, pipeline_seconds, created_at"

type scanner interface{ Scan(dest ...any) error }

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		sourceDir  sql.NullString
		outputDir  sql.NullString
		valuesJSON string
		status     string
		errMsg     sql.NullString
		startedRaw string
		finishRaw  sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.Stage,
		&run.Field,
		&sourceDir,
		&outputDir,
		&valuesJSON,
		&status,
		&run.Rendered,
		&run.Skipped,
		&run.Failed,
		&errMsg,
		&startedRaw,
		&finishRaw,
	); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(valuesJSON), &run.Values); err != nil {
		return nil, fmt.Errorf("decode sweep values for run %s: %w", run.ID, err)
	}
	run.SourceDir = sourceDir.String
	run.OutputDir = outputDir.String
	run.Status = Status(status)
	run.ErrorMessage = errMsg.String
	run.StartedAt = parseTime(startedRaw)
	if finishRaw.Valid {
		run.FinishedAt = parseTime(finishRaw.String)
	}
	return &run, nil
}

func scanRender(row scanner) (*Render, error) {
	var (
		r          Render
		stages     sql.NullString
		status     string
		errMsg     sql.NullString
		durationMs int64
		createdRaw string
	)
	if err := row.Scan(
		&r.ID,
		&r.RunID,
		&r.SourcePath,
		&r.OutputPath,
		&r.Value,
		&stages,
		&status,
		&errMsg,
		&durationMs,
		&r.PipelineSeconds,
		&createdRaw,
	); err != nil {
		return nil, fmt.Errorf("scan render: %w", err)
	}
	if stages.String != "" {
		r.Stages = strings.Split(stages.String, ",")
	}
	r.Status = Status(status)
	r.ErrorMessage = errMsg.String
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.CreatedAt = parseTime(createdRaw)
	return &r, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
