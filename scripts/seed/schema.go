package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements creates every table the services query. Statements are
// idempotent and ordered so foreign keys resolve on a fresh database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		org_uuid TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT,
		about TEXT,
		slug TEXT NOT NULL UNIQUE,
		email TEXT,
		logo_image TEXT,
		thumbnail_image TEXT,
		socials JSONB,
		links JSONB,
		label TEXT,
		explore BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS organization_configs (
		org_id BIGINT PRIMARY KEY REFERENCES organizations(id) ON DELETE CASCADE,
		config JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		user_uuid TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT,
		last_name TEXT,
		password_hash TEXT NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		avatar_image TEXT,
		bio TEXT,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// org_id is NULL for the global preset roles shipped with the
	// installation and set for organization-defined roles.
	`CREATE TABLE IF NOT EXISTS roles (
		id BIGSERIAL PRIMARY KEY,
		role_uuid TEXT NOT NULL UNIQUE,
		org_id BIGINT REFERENCES organizations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		role_type TEXT NOT NULL,
		rights JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS user_organizations (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		role_id BIGINT NOT NULL REFERENCES roles(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, org_id)
	)`,

	`CREATE TABLE IF NOT EXISTS courses (
		id BIGSERIAL PRIMARY KEY,
		course_uuid TEXT NOT NULL UNIQUE,
		org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		about TEXT,
		learnings TEXT,
		tags TEXT,
		thumbnail_image TEXT,
		public BOOLEAN NOT NULL DEFAULT FALSE,
		open_to_contributors BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS chapters (
		id BIGSERIAL PRIMARY KEY,
		chapter_uuid TEXT NOT NULL UNIQUE,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		org_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS course_chapters (
		id BIGSERIAL PRIMARY KEY,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		chapter_id BIGINT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
		org_id BIGINT NOT NULL,
		position INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (course_id, chapter_id)
	)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id BIGSERIAL PRIMARY KEY,
		activity_uuid TEXT NOT NULL UNIQUE,
		org_id BIGINT NOT NULL,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		activity_sub_type TEXT,
		content JSONB,
		details JSONB,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS chapter_activities (
		id BIGSERIAL PRIMARY KEY,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		org_id BIGINT NOT NULL,
		chapter_id BIGINT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
		activity_id BIGINT NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (chapter_id, activity_id)
	)`,

	`CREATE TABLE IF NOT EXISTS course_updates (
		id BIGSERIAL PRIMARY KEY,
		courseupdate_uuid TEXT NOT NULL UNIQUE,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		org_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		content TEXT,
		linked_activity_uuids TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS collections (
		id BIGSERIAL PRIMARY KEY,
		collection_uuid TEXT NOT NULL UNIQUE,
		org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		public BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS collection_courses (
		id BIGSERIAL PRIMARY KEY,
		collection_id BIGINT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		org_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (collection_id, course_id)
	)`,

	`CREATE TABLE IF NOT EXISTS usergroups (
		id BIGSERIAL PRIMARY KEY,
		usergroup_uuid TEXT NOT NULL UNIQUE,
		org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS usergroup_users (
		id BIGSERIAL PRIMARY KEY,
		usergroup_id BIGINT NOT NULL REFERENCES usergroups(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		org_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (usergroup_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS usergroup_resources (
		id BIGSERIAL PRIMARY KEY,
		usergroup_id BIGINT NOT NULL REFERENCES usergroups(id) ON DELETE CASCADE,
		resource_uuid TEXT NOT NULL,
		org_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (usergroup_id, resource_uuid)
	)`,

	`CREATE TABLE IF NOT EXISTS resource_authors (
		id BIGSERIAL PRIMARY KEY,
		resource_uuid TEXT NOT NULL,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		authorship TEXT NOT NULL,
		authorship_status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (resource_uuid, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		ip TEXT,
		ua TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT NOT NULL,
		module TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (key, module)
	)`,

	// actor_id intentionally has no foreign key so the log survives
	// account deletion. Reads LEFT JOIN users to resolve the name.
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		actor_id BIGINT NOT NULL,
		org_id BIGINT,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		meta JSONB,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_courses_org ON courses (org_id)`,
	`CREATE INDEX IF NOT EXISTS idx_course_chapters_course ON course_chapters (course_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_chapter_activities_course ON chapter_activities (course_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chapter_activities_chapter ON chapter_activities (chapter_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_user_organizations_org ON user_organizations (org_id)`,
	`CREATE INDEX IF NOT EXISTS idx_resource_authors_resource ON resource_authors (resource_uuid)`,
	`CREATE INDEX IF NOT EXISTS idx_collection_courses_collection ON collection_courses (collection_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_org_time ON audit_logs (org_id, occurred_at DESC)`,
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
