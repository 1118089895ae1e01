package event

import (
	"context"
	"testing"
)

func BenchmarkBusPublishNoSubscribers(b *testing.B) {
	bus := NewBus[int](context.Background(), BusOptions{Name: "bench"})
	defer bus.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(i)
	}
}

func BenchmarkBusPublishOneSubscriber(b *testing.B) {
	bus := NewBus[int](context.Background(), BusOptions{
		Name:                 "bench",
		SubscriberBufferSize: 1024,
	})
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()
	go func() {
		for range ch {
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(i)
	}
}

func BenchmarkBusPublishFiltered(b *testing.B) {
	bus := NewBus[int](context.Background(), BusOptions{
		Name:                 "bench",
		SubscriberBufferSize: 1024,
	})
	defer bus.Close()

	ch, cancel := bus.SubscribeFiltered(func(value int) bool {
		return value%2 == 0
	})
	defer cancel()
	go func() {
		for range ch {
		}
	}()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(i)
	}
}
