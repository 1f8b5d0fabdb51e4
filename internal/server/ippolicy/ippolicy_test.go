package ippolicy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage/boltdb"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "203.0.113.7", want: "203.0.113.7/32"},
		{in: " 203.0.113.0/24 ", want: "203.0.113.0/24"},
		{in: "203.0.113.77/24", want: "203.0.113.0/24"},
		{in: "2001:db8::1", want: "2001:db8::1/128"},
		{in: "2001:db8::/32", want: "2001:db8::/32"},
		{in: "not-an-ip", wantErr: true},
		{in: "10.0.0.0/33", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, storage.ErrInvalidCIDR)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatic_Allowed(t *testing.T) {
	ctx := context.Background()

	p, err := NewStatic([]string{"203.0.113.0/24", "198.51.100.7", "", "2001:db8::/32"})
	require.NoError(t, err)

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "203.0.113.200", want: true},
		{ip: "198.51.100.7", want: true},
		{ip: "198.51.100.8", want: false},
		{ip: "2001:db8::42", want: true},
		{ip: "10.0.0.1", want: false},
		{ip: "garbage", want: false},
		{ip: "", want: false},
	}
	for _, tt := range tests {
		allowed, err := p.Allowed(ctx, tt.ip)
		require.NoError(t, err)
		assert.Equal(t, tt.want, allowed, tt.ip)
	}

	_, err = NewStatic([]string{"10.0.0.0/8", "bogus"})
	assert.ErrorIs(t, err, storage.ErrInvalidCIDR)
}

func TestEmptyListAllowsEveryone(t *testing.T) {
	ctx := context.Background()

	p, err := NewStatic(nil)
	require.NoError(t, err)

	allowed, err := p.Allowed(ctx, "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = AllowAll{}.Allowed(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestManaged(t *testing.T) {
	ctx := context.Background()

	store, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "policy.db"))
	require.NoError(t, err)
	defer store.Close()

	m, err := NewManaged(ctx, store, []string{"203.0.113.0/24"}, nil)
	require.NoError(t, err)

	allowed, _ := m.Allowed(ctx, "203.0.113.9")
	assert.True(t, allowed)
	allowed, _ = m.Allowed(ctx, "10.1.2.3")
	assert.False(t, allowed)

	rule, err := m.Add(ctx, "10.1.2.3", "ops laptop")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3/32", rule.CIDR)

	allowed, _ = m.Allowed(ctx, "10.1.2.3")
	assert.True(t, allowed)

	rules, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = m.Add(ctx, "nope", "")
	assert.ErrorIs(t, err, storage.ErrInvalidCIDR)

	require.NoError(t, m.Remove(ctx, "10.1.2.3/32"))
	allowed, _ = m.Allowed(ctx, "10.1.2.3")
	assert.False(t, allowed)

	assert.ErrorIs(t, m.Remove(ctx, "10.1.2.3"), storage.ErrRuleNotFound)

	// удаление последнего правила открывает доступ всем
	require.NoError(t, m.Remove(ctx, "203.0.113.0/24"))
	allowed, _ = m.Allowed(ctx, "10.1.2.3")
	assert.True(t, allowed)

	// seed не дублирует уже сохраненные правила
	m2, err := NewManaged(ctx, store, []string{"198.51.100.0/24", "198.51.100.0/24"}, nil)
	require.NoError(t, err)
	rules, err = m2.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}
