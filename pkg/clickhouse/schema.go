package clickhouse

import "fmt"

// CandleTables lists the candle tables by timeframe suffix.
var CandleTables = []string{"1s", "1m", "5m", "15m", "1h", "4h", "1d"}

// CandleTable returns the fully qualified table holding candles of tf.
func CandleTable(database, tf string) string {
	return fmt.Sprintf("%s.candles_%s", database, tf)
}

// CandleSchema returns DDL creating the database and all candle tables.
func CandleSchema(database string) []string {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)}
	for _, tf := range CandleTables {
		stmts = append(stmts, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    symbol LowCardinality(String),
    bucket DateTime64(3, 'UTC'),
    open   Float64,
    high   Float64,
    low    Float64,
    close  Float64,
    vol    Float64
)
ENGINE = ReplacingMergeTree
ORDER BY (symbol, bucket)`, CandleTable(database, tf)))
	}
	return stmts
}
