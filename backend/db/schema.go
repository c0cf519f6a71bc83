package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// SchemaMySQL and SchemaSQLite create the same logical schema in either
// engine. Identifiers are uuid strings so the schema stays portable and ids
// survive a move between backing stores.
const SchemaMySQL = `
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(36) PRIMARY KEY,
    email VARCHAR(256) NOT NULL UNIQUE,
    password_hash VARCHAR(256) NOT NULL,
    api_key VARCHAR(36) NOT NULL UNIQUE,
    plan VARCHAR(32) NOT NULL DEFAULT 'free',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
    id VARCHAR(36) PRIMARY KEY,
    user_id VARCHAR(36) NOT NULL,
    name VARCHAR(256) NOT NULL,
    domain VARCHAR(256),
    api_key VARCHAR(36) NOT NULL UNIQUE,
    settings TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
    INDEX idx_projects_user (user_id)
);

CREATE TABLE IF NOT EXISTS bug_reports (
    id VARCHAR(36) PRIMARY KEY,
    project_id VARCHAR(36) NOT NULL,
    title VARCHAR(500) NOT NULL,
    description TEXT NOT NULL,
    severity VARCHAR(16) NOT NULL DEFAULT 'medium',
    status VARCHAR(16) NOT NULL DEFAULT 'open',
    screenshot MEDIUMTEXT,
    environment TEXT,
    user_email VARCHAR(256),
    user_agent TEXT,
    url TEXT,
    steps TEXT,
    tags TEXT,
    ai_area VARCHAR(16),
    ai_category VARCHAR(16),
    ai_hours INT,
    ai_confidence DOUBLE,
    ai_summary TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
    INDEX idx_reports_project (project_id),
    INDEX idx_reports_status (status),
    INDEX idx_reports_severity (severity)
);

CREATE TABLE IF NOT EXISTS analytics (
    id VARCHAR(36) PRIMARY KEY,
    project_id VARCHAR(36) NOT NULL,
    event_type VARCHAR(64) NOT NULL,
    event_data TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
    INDEX idx_analytics_project (project_id)
);
`

const SchemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    api_key TEXT NOT NULL UNIQUE,
    plan TEXT NOT NULL DEFAULT 'free',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    domain TEXT,
    api_key TEXT NOT NULL UNIQUE,
    settings TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);

CREATE TABLE IF NOT EXISTS bug_reports (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    severity TEXT NOT NULL DEFAULT 'medium',
    status TEXT NOT NULL DEFAULT 'open',
    screenshot TEXT,
    environment TEXT,
    user_email TEXT,
    user_agent TEXT,
    url TEXT,
    steps TEXT,
    tags TEXT,
    ai_area TEXT,
    ai_category TEXT,
    ai_hours INTEGER,
    ai_confidence REAL,
    ai_summary TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_project ON bug_reports(project_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON bug_reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_severity ON bug_reports(severity);

CREATE TABLE IF NOT EXISTS analytics (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    event_data TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analytics_project ON analytics(project_id);
`

// InitializeSchema creates all tables for the given driver.
func InitializeSchema(dbc *sql.DB, driver string) error {
	var schema string
	switch driver {
	case DriverMySQL:
		schema = SchemaMySQL
	case DriverSQLite:
		schema = SchemaSQLite
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := dbc.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
