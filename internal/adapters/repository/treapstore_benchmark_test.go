package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/okian/behavior/internal/domain/model"
)

func seededStore(b *testing.B, identities int) *TreapStore {
	b.Helper()
	s := NewTreapStore(WithSeed(7))
	ctx := context.Background()
	at := time.Date(2025, 10, 16, 14, 0, 0, 0, time.UTC)
	for i := 0; i < identities; i++ {
		for j := 0; j <= i%5; j++ {
			_ = s.Record(ctx, model.Recognition{Identity: "id-" + strconv.Itoa(i), Confidence: 85, At: at})
		}
	}
	return s
}

func BenchmarkRecord(b *testing.B) {
	s := seededStore(b, 1000)
	ctx := context.Background()
	at := time.Now()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Record(ctx, model.Recognition{Identity: "id-" + strconv.Itoa(i%1000), Confidence: 90, At: at})
	}
}

func BenchmarkTopN(b *testing.B) {
	s := seededStore(b, 1000)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.TopN(ctx, 10)
	}
}

func BenchmarkRecordParallel(b *testing.B) {
	s := seededStore(b, 100)
	ctx := context.Background()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = s.Record(ctx, model.Recognition{Identity: "id-" + strconv.Itoa(i%100), Confidence: 88, At: time.Now()})
			i++
		}
	})
}
