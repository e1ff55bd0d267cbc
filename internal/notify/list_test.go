package notify

import "testing"

func TestEmitInRegistrationOrder(t *testing.T) {
	var l List[int]
	var got []string

	l.Add(func(v int) { got = append(got, "a") })
	l.Add(func(v int) { got = append(got, "b") })
	l.Add(func(v int) { got = append(got, "c") })

	l.Emit(1)

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("handler %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRemoveKeepsOthers(t *testing.T) {
	var l List[string]
	var a, b int

	unsubA := l.Add(func(string) { a++ })
	l.Add(func(string) { b++ })

	unsubA()
	unsubA() // second call is a no-op

	l.Emit("x")

	if a != 0 {
		t.Errorf("removed handler called %d times", a)
	}
	if b != 1 {
		t.Errorf("remaining handler called %d times, want 1", b)
	}
}

func TestHandlerMayUnsubscribeDuringEmit(t *testing.T) {
	var l List[int]
	calls := 0
	var unsub func()
	unsub = l.Add(func(int) {
		calls++
		unsub()
	})

	l.Emit(1)
	l.Emit(2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
