package service

import "fmt"

// Ключи стабильны: их читают операторы через redis-cli.

func WindowKey(symbol string) string   { return fmt.Sprintf("prices:%s:derived_1d", symbol) }
func SMAKey(symbol string) string      { return fmt.Sprintf("previous_sma:%s", symbol) }
func PositionKey(symbol string) string { return fmt.Sprintf("position:%s", symbol) }
func StatusKey(symbol string) string   { return fmt.Sprintf("websocket_status:%s", symbol) }
func GuardKey(symbol string) string    { return fmt.Sprintf("last_finalized:%s", symbol) }

func smaField(period int) string { return fmt.Sprintf("sma_%d", period) }
