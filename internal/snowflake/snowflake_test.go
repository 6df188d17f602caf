package snowflake

import (
	"testing"
	"time"
)

func TestSetupSnowflake(t *testing.T) {
	err := Setup(3)
	if err != nil {
		t.Error(err)
	}
}

func TestSetupRejectsSecondWorkerID(t *testing.T) {
	err := Setup(4)
	if err == nil {
		t.Error("expected error on second Setup call")
	}
}

func TestGenerateSnowflake(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatal(err)
	}

	if Worker(id) != 3 {
		t.Errorf("worker bits: got %d, want 3", Worker(id))
	}

	if time.Since(Timestamp(id)) > time.Minute {
		t.Errorf("timestamp bits decode to %s, way off now", Timestamp(id))
	}
}

func TestGenerateIsStrictlyIncreasing(t *testing.T) {
	var prev int64
	for n := 0; n < 1000; n++ {
		id, err := Generate()
		if err != nil {
			t.Fatal(err)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestSnowflakeIncrementOverflow(t *testing.T) {
	for n := 0; n < 100000; n++ {
		_, err := Generate()
		if err != nil {
			return
		}
	}
	t.Error("Expected increment overflow, but there wasn't")
}
