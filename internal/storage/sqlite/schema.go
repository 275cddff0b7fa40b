package sqlite

const schema = `
-- Discovered candidates: immutable snapshots of discovery-time metadata
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    url TEXT NOT NULL DEFAULT '',
    stars INTEGER NOT NULL DEFAULT 0,
    forks INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME,
    discovered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(owner, name)
);

CREATE INDEX IF NOT EXISTS idx_candidates_owner_name ON candidates(owner, name);
CREATE INDEX IF NOT EXISTS idx_candidates_discovered_at ON candidates(discovered_at);

-- Quality analyses: exactly one per candidate
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    candidate_id TEXT NOT NULL UNIQUE,
    score REAL NOT NULL CHECK(score >= 0 AND score <= 10),
    docs REAL NOT NULL DEFAULT 5.0,
    tests REAL NOT NULL DEFAULT 5.0,
    activity REAL NOT NULL DEFAULT 5.0,
    code REAL NOT NULL DEFAULT 5.0,
    maintained INTEGER NOT NULL DEFAULT 0,
    category TEXT NOT NULL DEFAULT 'utility',
    features TEXT NOT NULL DEFAULT '[]',
    recommendations TEXT NOT NULL DEFAULT '[]',
    used_default INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_analyses_score ON analyses(score);
CREATE INDEX IF NOT EXISTS idx_analyses_category ON analyses(category);

-- Accepted matches between candidates and open external requests
CREATE TABLE IF NOT EXISTS matches (
    id TEXT PRIMARY KEY,
    candidate_id TEXT NOT NULL,
    issue_owner TEXT NOT NULL,
    issue_repo TEXT NOT NULL,
    issue_number INTEGER NOT NULL,
    issue_url TEXT NOT NULL DEFAULT '',
    issue_title TEXT NOT NULL DEFAULT '',
    score REAL NOT NULL CHECK(score >= 0 AND score <= 1),
    reason TEXT NOT NULL DEFAULT '',
    features TEXT NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'pending',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_matches_candidate ON matches(candidate_id);
CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);

-- Append-only notification log; recent rows per target drive cooldown
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    candidate_id TEXT,
    issue_number INTEGER NOT NULL DEFAULT 0,
    issue_url TEXT NOT NULL DEFAULT '',
    sent_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_target ON notifications(owner, name, sent_at);
`
