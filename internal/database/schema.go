package database

// MySQLSchema creates the tables used by the service.  The two group tables
// share their column layout so the registration service can treat them
// uniformly.  group_ids holds every group id of both subsystems under one
// primary key; the backfill statements make it cover rows written before
// the table existed.
var MySQLSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'VOLUNTEER',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS events (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(255) NOT NULL UNIQUE,
		price_amount  BIGINT       NOT NULL,
		max_team_size INT          NOT NULL DEFAULT 1,
		is_active     TINYINT(1)   NOT NULL DEFAULT 1
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS group_ids (
		group_id VARCHAR(16) PRIMARY KEY,
		kind     VARCHAR(16) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tier_pass_groups (
		group_id                VARCHAR(16)  PRIMARY KEY,
		contact_name            VARCHAR(255) NOT NULL,
		contact_email           VARCHAR(255) NOT NULL,
		contact_phone           VARCHAR(32)  NOT NULL,
		total_amount            BIGINT       NOT NULL,
		payment_txn_id          VARCHAR(128) NOT NULL,
		payment_screenshot_path VARCHAR(512) NULL,
		status                  VARCHAR(16)  NOT NULL DEFAULT 'pending',
		created_at              DATETIME     NOT NULL,
		reviewed_at             DATETIME     NULL,
		reviewed_by             VARCHAR(255) NULL,
		rejection_reason        TEXT         NULL,
		INDEX idx_tpg_status (status),
		INDEX idx_tpg_contact_email (contact_email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tier_pass_members (
		id        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		group_id  VARCHAR(16)  NOT NULL,
		user_id   VARCHAR(20)  NOT NULL UNIQUE,
		name      VARCHAR(255) NOT NULL,
		email     VARCHAR(255) NOT NULL,
		phone     VARCHAR(32)  NOT NULL,
		college   VARCHAR(255) NOT NULL,
		tier      VARCHAR(32)  NULL,
		pass_type VARCHAR(32)  NULL,
		pass_tier VARCHAR(32)  NULL,
		position  INT          NOT NULL,
		INDEX idx_tpm_email (email),
		CONSTRAINT fk_tpm_group FOREIGN KEY (group_id) REFERENCES tier_pass_groups(group_id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS event_groups (
		group_id                VARCHAR(16)     PRIMARY KEY,
		event_id                BIGINT UNSIGNED NOT NULL,
		contact_name            VARCHAR(255)    NOT NULL,
		contact_email           VARCHAR(255)    NOT NULL,
		contact_phone           VARCHAR(32)     NOT NULL,
		total_amount            BIGINT          NOT NULL,
		payment_txn_id          VARCHAR(128)    NOT NULL,
		payment_screenshot_path VARCHAR(512)    NULL,
		status                  VARCHAR(16)     NOT NULL DEFAULT 'pending',
		created_at              DATETIME        NOT NULL,
		reviewed_at             DATETIME        NULL,
		reviewed_by             VARCHAR(255)    NULL,
		rejection_reason        TEXT            NULL,
		INDEX idx_eg_status (status),
		INDEX idx_eg_contact_email (contact_email),
		CONSTRAINT fk_eg_event FOREIGN KEY (event_id) REFERENCES events(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS event_members (
		id       BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		group_id VARCHAR(16)  NOT NULL,
		user_id  VARCHAR(20)  NOT NULL UNIQUE,
		name     VARCHAR(255) NOT NULL,
		email    VARCHAR(255) NOT NULL,
		phone    VARCHAR(32)  NOT NULL,
		college  VARCHAR(255) NOT NULL,
		position INT          NOT NULL,
		INDEX idx_em_email (email),
		CONSTRAINT fk_em_group FOREIGN KEY (group_id) REFERENCES event_groups(group_id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`INSERT IGNORE INTO group_ids (group_id, kind) SELECT group_id, 'tier_pass' FROM tier_pass_groups`,
	`INSERT IGNORE INTO group_ids (group_id, kind) SELECT group_id, 'event' FROM event_groups`,
}
