package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordLoad(t *testing.T) {
	m := &Metrics{}

	m.RecordLoad(10*time.Millisecond, nil)
	m.RecordLoad(30*time.Millisecond, errors.New("rpc timeout"))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.LoadsTotal)
	assert.Equal(t, int64(1), snap.LoadErrors)
	assert.InDelta(t, 20.0, m.LoadLatencyAvgMs(), 0.01)
}

func TestRecordScanAndPurchase(t *testing.T) {
	m := &Metrics{}

	m.RecordScan(100, 3)
	m.RecordPurchase(nil)
	m.RecordPurchase(errors.New("reverted"))
	m.RecordStaleDiscard()
	m.RecordRefreshRequest()

	snap := m.Snapshot()
	assert.Equal(t, int64(100), snap.TokensScanned)
	assert.Equal(t, int64(3), snap.TokensSkipped)
	assert.Equal(t, int64(2), snap.PurchasesTotal)
	assert.Equal(t, int64(1), snap.PurchaseErrors)
	assert.Equal(t, int64(1), snap.StaleDiscards)
	assert.Equal(t, int64(1), snap.RefreshRequests)
}

func TestConcurrentRecording(t *testing.T) {
	m := &Metrics{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordLoad(time.Millisecond, nil)
			m.RecordStaleDiscard()
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(50), snap.LoadsTotal)
	assert.Equal(t, int64(50), snap.StaleDiscards)
}

func TestReset(t *testing.T) {
	m := &Metrics{}
	m.RecordLoad(time.Millisecond, errors.New("x"))
	m.Reset()

	assert.Equal(t, Snapshot{}, m.Snapshot())
	assert.Zero(t, m.LoadLatencyAvgMs())
}
