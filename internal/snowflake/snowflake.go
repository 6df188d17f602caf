package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// 42 bits of unix-millis, 10 bits of worker id, 12 bits of per-millisecond
// increment. Every entity id in the system comes from here, which also gives
// every row a creation timestamp for free (see Timestamp).
const (
	timestampBits int64 = 42
	workerBits    int64 = 10
	incrementBits       = 64 - timestampBits - workerBits

	timestampShift = 64 - timestampBits
	workerShift    = timestampShift - workerBits

	maxWorker    = (1 << workerBits) - 1
	maxIncrement = (1 << incrementBits) - 1
)

var (
	mutex         sync.Mutex
	lastTimestamp int64
	lastIncrement int64

	workerID    int64
	hasWorkerID bool
)

func Setup(id int64) error {
	if id > maxWorker {
		return fmt.Errorf("worker ID value exceeds maximum value of [%d]", int64(maxWorker))
	}
	if hasWorkerID {
		return fmt.Errorf("worker ID for snowflake generator has been already set")
	}
	workerID = id
	hasWorkerID = true
	return nil
}

func Generate() (int64, error) {
	mutex.Lock()
	defer mutex.Unlock()

	timestamp := time.Now().UnixMilli()
	if timestamp == lastTimestamp {
		lastIncrement++
		if lastIncrement > maxIncrement {
			return 0, fmt.Errorf("increment overflow after increment reached %d", lastIncrement)
		}
	} else {
		lastIncrement = 0
		lastTimestamp = timestamp
	}

	return timestamp<<timestampShift | workerID<<workerShift | lastIncrement, nil
}

// Timestamp returns the creation time encoded in an id.
func Timestamp(id int64) time.Time {
	return time.UnixMilli(id >> timestampShift)
}

// Worker returns the worker id encoded in an id.
func Worker(id int64) int64 {
	return (id >> workerShift) & maxWorker
}
