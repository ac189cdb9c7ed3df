package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	fill_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	action TEXT NOT NULL,
	amount REAL NOT NULL,
	price REAL NOT NULL,
	cost_basis REAL NOT NULL,
	margin REAL NOT NULL,
	realized_pl REAL NOT NULL,
	stop_loss REAL,
	take_profit REAL,
	tag TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(time);
CREATE INDEX IF NOT EXISTS idx_fills_run ON fills(run_id);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	run_id TEXT NOT NULL,
	cash REAL NOT NULL,
	spot_cost REAL NOT NULL,
	margin_available REAL NOT NULL,
	margin_used REAL NOT NULL,
	realized_pl REAL NOT NULL,
	unrealized_pl REAL NOT NULL,
	equity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
