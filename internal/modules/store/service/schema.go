package service

const schema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    symbol        TEXT        NOT NULL,
    day           DATE        NOT NULL,
    open          NUMERIC     NOT NULL,
    high          NUMERIC     NOT NULL,
    low           NUMERIC     NOT NULL,
    close         NUMERIC     NOT NULL,
    is_historical BOOLEAN     NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (symbol, day)
);

CREATE TABLE IF NOT EXISTS signals (
    id            UUID        PRIMARY KEY,
    symbol        TEXT        NOT NULL,
    day           DATE        NOT NULL,
    side          TEXT        NOT NULL,
    price         NUMERIC     NOT NULL,
    sma_short     NUMERIC     NOT NULL,
    sma_long      NUMERIC     NOT NULL,
    short_period  INT         NOT NULL,
    long_period   INT         NOT NULL,
    reason        TEXT        NOT NULL DEFAULT '',
    signal_ts     TIMESTAMPTZ NOT NULL,
    calculated_at TIMESTAMPTZ NOT NULL,
    UNIQUE (symbol, day)
);

CREATE TABLE IF NOT EXISTS orders (
    id         UUID        PRIMARY KEY,
    signal_id  UUID        NOT NULL UNIQUE REFERENCES signals (id),
    symbol     TEXT        NOT NULL,
    side       TEXT        NOT NULL,
    type       TEXT        NOT NULL,
    status     TEXT        NOT NULL,
    price      NUMERIC     NOT NULL,
    ts         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS orders_symbol_ts_idx ON orders (symbol, ts);
`
