package journal

const Schema = `
CREATE TABLE IF NOT EXISTS transitions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	at DATETIME NOT NULL,
	payload TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	lots REAL NOT NULL,
	risk_amount REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_order ON transitions(order_id);
CREATE INDEX IF NOT EXISTS idx_transitions_trade ON transitions(trade_id);
CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
`
