package service

import (
	"context"
	"errors"
	"testing"

	"convstore/gateway"
	"convstore/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ddlGateway struct {
	dialect  gateway.Dialect
	executed []string
	err      error
	pingErr  error
	pinged   bool
}

func (g *ddlGateway) Dialect() gateway.Dialect { return g.dialect }

func (g *ddlGateway) Execute(_ context.Context, sql string, _ ...any) (*gateway.Result, error) {
	g.executed = append(g.executed, sql)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Result{Meta: gateway.Meta{Duration: 0.2}}, nil
}

func (g *ddlGateway) Ping(context.Context) error {
	g.pinged = true
	return g.pingErr
}

func TestEnsureSchemaIsRepeatable(t *testing.T) {
	gw := &ddlGateway{dialect: gateway.DialectSQLite}
	conv, msg := model.SchemaStatements(gateway.DialectSQLite)

	for i := 0; i < 2; i++ {
		status, err := EnsureSchema(context.Background(), gw)
		require.NoError(t, err)
		assert.Equal(t, "Conversation", status.Conversation.Table)
		assert.Equal(t, "Message", status.Message.Table)
	}
	assert.Equal(t, []string{conv, msg, conv, msg}, gw.executed)
	assert.Contains(t, conv, "CREATE TABLE IF NOT EXISTS Conversation")
	assert.Contains(t, msg, "REFERENCES Message(message_id) ON DELETE CASCADE")
}

func TestEnsureSchemaReportsGatewayError(t *testing.T) {
	gw := &ddlGateway{dialect: gateway.DialectMySQL, err: errors.New("denied")}

	_, err := EnsureSchema(context.Background(), gw)
	require.Error(t, err)
	assert.Len(t, gw.executed, 1)
}

func TestHealthTaskUsesPinger(t *testing.T) {
	gw := &ddlGateway{dialect: gateway.DialectSQLite}
	require.NoError(t, HealthTask(context.Background(), gw))
	assert.True(t, gw.pinged)

	gw.pingErr = errors.New("token expired")
	require.Error(t, HealthTask(context.Background(), gw))
}
