package vm

import (
	"testing"

	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/value"
)

// TestResumeYieldRoundTrip exercises scenario 6's ping-pong shape at the
// host-closure level: a coroutine yields a value, its resumer observes the
// yield and the thread's status, then resumes it with a new value that the
// coroutine's body receives back from Yield and returns.
func TestResumeYieldRoundTrip(t *testing.T) {
	v := New()
	th, _ := v.NewThread()

	producer := object.NewHostClosure(v.Heap, v.white(), "producer", func(thread *object.Thread, args []value.Value) ([]value.Value, error) {
		resumed := v.Yield(thread, []value.Value{value.Number(1)})
		if len(resumed) != 1 || resumed[0].AsNumber() != 2 {
			t.Errorf("expected resume to deliver [2], got %v", resumed)
		}
		return []value.Value{value.Number(3)}, nil
	}, nil)

	results, err := v.Resume(th, producer, nil)
	if err != nil {
		t.Fatalf("first resume: %v", err)
	}
	if len(results) != 1 || results[0].AsNumber() != 1 {
		t.Fatalf("expected yielded [1], got %v", results)
	}
	if th.Status != object.StatusYield {
		t.Fatalf("expected status yield, got %v", th.Status)
	}

	results, err = v.Resume(th, producer, []value.Value{value.Number(2)})
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if len(results) != 1 || results[0].AsNumber() != 3 {
		t.Fatalf("expected final [3], got %v", results)
	}
	if th.Status != object.StatusOK {
		t.Fatalf("expected status ok after completion, got %v", th.Status)
	}
}

// TestResumeErroredThreadRejectsFurtherResume checks that a thread which
// raised a runtime error cannot be resumed again (spec §7's error-run
// status blocking further resume).
func TestResumeErroredThreadRejectsFurtherResume(t *testing.T) {
	v := New()
	th, _ := v.NewThread()

	failing := object.NewHostClosure(v.Heap, v.white(), "failing", func(thread *object.Thread, args []value.Value) ([]value.Value, error) {
		return nil, errBoom
	}, nil)

	_, err := v.Resume(th, failing, nil)
	if err == nil {
		t.Fatal("expected the first resume to surface the host error")
	}
	if th.Status != object.StatusErrorRun {
		t.Fatalf("expected status error-run, got %v", th.Status)
	}

	_, err = v.Resume(th, failing, nil)
	if err == nil {
		t.Fatal("expected resuming an errored thread to be rejected")
	}
}

// TestTransferPingPong exercises spec scenario 6: A transfers into B with
// 1, B transfers back into A with 2, and A's resumer observes the final
// value 2. B is left suspended inside its own Transfer call exactly as it
// would be suspended inside a Yield, so an ordinary Resume can still hand
// it a value and bring it to completion.
func TestTransferPingPong(t *testing.T) {
	v := New()
	a, _ := v.NewThread()
	b, _ := v.NewThread()

	bFn := object.NewHostClosure(v.Heap, v.white(), "b", func(thread *object.Thread, args []value.Value) ([]value.Value, error) {
		if len(args) != 1 || args[0].AsNumber() != 1 {
			t.Errorf("expected b to start with [1], got %v", args)
		}
		resumed, err := v.Transfer(b, a, value.Null, []value.Value{value.Number(2)})
		if err != nil {
			t.Errorf("b's transfer into a: %v", err)
		}
		return resumed, nil
	}, nil)

	aFn := object.NewHostClosure(v.Heap, v.white(), "a", func(thread *object.Thread, args []value.Value) ([]value.Value, error) {
		return v.Transfer(a, b, bFn, []value.Value{value.Number(1)})
	}, nil)

	results, err := v.Resume(a, aFn, nil)
	if err != nil {
		t.Fatalf("resume a: %v", err)
	}
	if len(results) != 1 || results[0].AsNumber() != 2 {
		t.Fatalf("expected final value [2], got %v", results)
	}
	if a.Status != object.StatusOK {
		t.Fatalf("expected a status ok, got %v", a.Status)
	}
	if a.Resumer != nil {
		t.Fatal("transfer must not establish a resumer link")
	}

	if b.Status != object.StatusYield {
		t.Fatalf("expected b still suspended inside its transfer, got %v", b.Status)
	}
	results, err = v.Resume(b, bFn, []value.Value{value.Number(3)})
	if err != nil {
		t.Fatalf("resume b: %v", err)
	}
	if len(results) != 1 || results[0].AsNumber() != 3 {
		t.Fatalf("expected b to complete with [3], got %v", results)
	}
	if b.Status != object.StatusOK {
		t.Fatalf("expected b status ok after completion, got %v", b.Status)
	}
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

var errBoom = simpleErr("boom")
