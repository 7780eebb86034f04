package store

const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    args TEXT NOT NULL,
    actor TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    undone BOOLEAN NOT NULL DEFAULT 0,
    before_count INTEGER NOT NULL,
    after_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS redo_stack (
    position INTEGER PRIMARY KEY AUTOINCREMENT,
    operation_id INTEGER NOT NULL,
    FOREIGN KEY (operation_id) REFERENCES operations(id)
);

CREATE TABLE IF NOT EXISTS named_snapshots (
    name TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    package_count INTEGER NOT NULL,
    python_version TEXT,
    file_path TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_created ON operations(created_at);
CREATE INDEX IF NOT EXISTS idx_redo_operation ON redo_stack(operation_id);
`
