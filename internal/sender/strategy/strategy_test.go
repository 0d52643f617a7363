package strategy

import (
	"context"
	"reflect"
	"testing"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/jobs"
)

type mockChannel struct {
	channelType domain.ChannelType
}

func (m *mockChannel) Send(context.Context, *jobs.Job) (*Result, error) {
	return &Result{Success: true}, nil
}

func (m *mockChannel) Type() domain.ChannelType {
	return m.channelType
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	sms := &mockChannel{channelType: domain.ChannelAggregatorSMS}
	registry.Register(&mockChannel{channelType: domain.ChannelGenericHTTP})
	registry.Register(&mockChannel{channelType: domain.ChannelAggregatorSMS})
	registry.Register(sms)

	if len(registry.channels) != 2 {
		t.Errorf("Register() should have 2 channels, got %d", len(registry.channels))
	}

	got, ok := registry.Get(domain.ChannelAggregatorSMS)
	if !ok || got != sms {
		t.Error("Register() should overwrite an existing channel of the same type")
	}

	if _, ok := registry.Get(domain.ChannelChatTemplate); ok {
		t.Error("Get() should miss an unregistered type")
	}
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	if len(registry.List()) != 0 {
		t.Error("List() on empty registry should be empty")
	}

	registry.Register(&mockChannel{channelType: domain.ChannelGenericHTTP})
	registry.Register(&mockChannel{channelType: domain.ChannelChatTemplate})

	want := []domain.ChannelType{domain.ChannelChatTemplate, domain.ChannelGenericHTTP}
	if got := registry.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}
