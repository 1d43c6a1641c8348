package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		avatar_url VARCHAR(500),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) UNIQUE NOT NULL,
		description TEXT,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS team_members (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(50) NOT NULL DEFAULT 'member',
		joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(team_id, user_id)
	)`,

	// At most one owner row per team; the transfer transaction relies on this
	// to reject a concurrent second owner.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_team_members_single_owner
		ON team_members(team_id) WHERE role = 'owner'`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(500) NOT NULL,
		description TEXT,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		team_id UUID REFERENCES teams(id),
		created_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS task_shares (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission VARCHAR(20) NOT NULL DEFAULT 'view',
		granted_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		granted_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(task_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS audit_denials (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		actor_id UUID NOT NULL,
		action VARCHAR(100) NOT NULL,
		resource_id UUID,
		required_capability VARCHAR(20),
		actual_capability VARCHAR(20),
		required_role VARCHAR(20),
		actual_role VARCHAR(20),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_team_members_team_id ON team_members(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_members_user_id ON team_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_team_id ON tasks(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_shares_task_id ON task_shares(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_shares_user_id ON task_shares(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_denials_actor_id ON audit_denials(actor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_denials_created_at ON audit_denials(created_at)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
