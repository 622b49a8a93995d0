package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"convstore/gateway"
)

// memGateway interprets the statements issued by ConversationService against
// two in-memory tables.
type memGateway struct {
	mu            sync.Mutex
	conversations map[string]gateway.Row
	messages      []gateway.Row
	executed      []string
	failOn        map[string]error
}

func newMemGateway() *memGateway {
	return &memGateway{
		conversations: map[string]gateway.Row{},
		failOn:        map[string]error{},
	}
}

func (m *memGateway) Dialect() gateway.Dialect {
	return gateway.DialectSQLite
}

func (m *memGateway) Execute(_ context.Context, sql string, params ...any) (*gateway.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executed = append(m.executed, sql)
	if err, ok := m.failOn[sql]; ok {
		return nil, err
	}
	p := make([]any, len(params))
	for i, v := range params {
		p[i] = wire(v)
	}

	switch sql {
	case sqlConversationExists:
		if _, ok := m.conversations[p[0].(string)]; ok {
			return &gateway.Result{Rows: []gateway.Row{{"conversation_id": p[0]}}}, nil
		}
		return &gateway.Result{}, nil

	case sqlInsertDefaultConversation:
		id := p[0].(string)
		if _, ok := m.conversations[id]; ok {
			return nil, fmt.Errorf("%w: UNIQUE constraint failed", gateway.ErrStatement)
		}
		m.conversations[id] = gateway.Row{
			"conversation_id": id, "project": nil, "brand": nil,
			"sequence": p[1], "status": p[2], "created_at": p[3],
			"latest_message_id": nil, "metadata": nil,
		}
		return &gateway.Result{Meta: gateway.Meta{Changes: 1}}, nil

	case sqlInsertConversation:
		id := p[0].(string)
		if _, ok := m.conversations[id]; ok {
			return nil, fmt.Errorf("%w: UNIQUE constraint failed", gateway.ErrStatement)
		}
		m.conversations[id] = gateway.Row{
			"conversation_id": id, "project": p[1], "brand": p[2],
			"sequence": p[3], "status": p[4], "created_at": p[5],
			"latest_message_id": nil, "metadata": p[6],
		}
		return &gateway.Result{Meta: gateway.Meta{Changes: 1}}, nil

	case sqlInsertMessage:
		m.messages = append(m.messages, gateway.Row{
			"message_id": p[0], "conversation_id": p[1], "role": p[2], "text": p[3],
			"parent_message_id": p[4], "timestamp": p[5], "metadata": p[6],
		})
		return &gateway.Result{Meta: gateway.Meta{Changes: 1}}, nil

	case sqlUpdateLatestMessage:
		row, ok := m.conversations[p[1].(string)]
		if !ok {
			return &gateway.Result{}, nil
		}
		row["latest_message_id"] = p[0]
		return &gateway.Result{Meta: gateway.Meta{Changes: 1}}, nil

	case sqlSelectConversation:
		row, ok := m.conversations[p[0].(string)]
		if !ok {
			return &gateway.Result{}, nil
		}
		return &gateway.Result{Rows: []gateway.Row{copyRow(row)}}, nil

	case sqlSelectMessagesNewestFirst, sqlSelectMessagesOldestFirst:
		var rows []gateway.Row
		for _, row := range m.messages {
			if row["conversation_id"] == p[0] {
				rows = append(rows, copyRow(row))
			}
		}
		desc := sql == sqlSelectMessagesNewestFirst
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i].String("timestamp"), rows[j].String("timestamp")
			if desc {
				return a > b
			}
			return a < b
		})
		if limit := p[1].(int); len(rows) > limit {
			rows = rows[:limit]
		}
		return &gateway.Result{Rows: rows}, nil
	}

	return nil, fmt.Errorf("%w: unexpected statement %q", gateway.ErrStatement, sql)
}

func (m *memGateway) count(sql string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.executed {
		if s == sql {
			n++
		}
	}
	return n
}

func wire(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(gateway.TimeLayout)
	case *string:
		if t == nil {
			return nil
		}
		return *t
	default:
		return v
	}
}

func copyRow(row gateway.Row) gateway.Row {
	out := make(gateway.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// tickingClock returns a clock that advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestService(gw gateway.Gateway) *ConversationService {
	s := NewConversationService(gw)
	s.now = tickingClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return s
}
