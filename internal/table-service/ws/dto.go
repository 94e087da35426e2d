package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: ping (o feed é da mesa inteira, não há subscribe por evento)
type ClientMsg struct {
	Type string `json:"type"`
}

// TableUpdate representa uma atualização da mesa enviada aos clientes WebSocket
type TableUpdate struct {
	TableID string      `json:"tableId"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
