package poolmgr

import "testing"

func TestShardStatesDistributesRoundRobin(t *testing.T) {
	buckets := shardStates([]string{"TX", "CA", "NY", "FL", "WA"}, 2)
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if got := buckets[0]; len(got) != 3 || got[0] != "TX" || got[1] != "NY" || got[2] != "WA" {
		t.Errorf("bucket 0 = %v, want [TX NY WA]", got)
	}
	if got := buckets[1]; len(got) != 2 || got[0] != "CA" || got[1] != "FL" {
		t.Errorf("bucket 1 = %v, want [CA FL]", got)
	}
}

func TestShardStatesEmptyYieldsUnrestrictedBuckets(t *testing.T) {
	buckets := shardStates(nil, 3)
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}
	for i, b := range buckets {
		if len(b) != 0 {
			t.Errorf("bucket %d = %v, want empty", i, b)
		}
	}
}

func TestShardStatesMoreWorkersThanStates(t *testing.T) {
	buckets := shardStates([]string{"TX"}, 3)
	if len(buckets[0]) != 1 || buckets[0][0] != "TX" {
		t.Errorf("bucket 0 = %v, want [TX]", buckets[0])
	}
	if len(buckets[1]) != 0 || len(buckets[2]) != 0 {
		t.Errorf("expected remaining buckets empty, got %v %v", buckets[1], buckets[2])
	}
}
