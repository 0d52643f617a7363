package metrics

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(ServiceWorker, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordReceived()
			c.RecordProcessed(2 * time.Millisecond)
			c.IncrementCustom("deliveries_sent")
		}()
	}
	wg.Wait()
	c.RecordPublished()
	c.RecordError()
	c.AddCustom("deliveries_failed", 3)

	snap := c.Snapshot()
	if snap.ServiceName != ServiceWorker || snap.Status != "healthy" {
		t.Errorf("Snapshot() identity = %q/%q", snap.ServiceName, snap.Status)
	}
	if snap.EventsReceived != 20 || snap.EventsProcessed != 20 {
		t.Errorf("received/processed = %d/%d, want 20/20", snap.EventsReceived, snap.EventsProcessed)
	}
	if snap.JobsPublished != 1 || snap.ProcessingErrors != 1 {
		t.Errorf("published/errors = %d/%d, want 1/1", snap.JobsPublished, snap.ProcessingErrors)
	}
	if snap.AvgProcessingLatencyNs != float64(2*time.Millisecond) {
		t.Errorf("AvgProcessingLatencyNs = %v, want %v", snap.AvgProcessingLatencyNs, float64(2*time.Millisecond))
	}
	if snap.Counters["deliveries_sent"] != 20 || c.Custom("deliveries_failed") != 3 {
		t.Errorf("Counters = %v", snap.Counters)
	}
	if c.Custom("unknown") != 0 {
		t.Error("Custom() for unknown counter should be 0")
	}
}

func TestCollector_StartStopWithoutRedis(t *testing.T) {
	c := NewCollector(ServiceAPI, nil)
	c.SetReportInterval(10 * time.Millisecond)
	c.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	c.Stop()
	c.Stop()
}
