package condition

import (
	"errors"
	"testing"

	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// fakeSensors records how often each query was made.
type fakeSensors struct {
	inside  map[string]bool // sensor + "/" + object
	grasped map[string][]string
	joints  map[string]float64
	queries int
}

func newFakeSensors() *fakeSensors {
	return &fakeSensors{
		inside:  make(map[string]bool),
		grasped: make(map[string][]string),
		joints:  make(map[string]float64),
	}
}

func (f *fakeSensors) Detected(sensor, object string) bool {
	f.queries++
	return f.inside[sensor+"/"+object]
}

func (f *fakeSensors) Grasped(gripper string) []string {
	f.queries++
	return f.grasped[gripper]
}

func (f *fakeSensors) JointDisplacement(joint string) float64 {
	f.queries++
	return f.joints[joint]
}

var _ scene.Sensors = (*fakeSensors)(nil)

func mustSet(t *testing.T, c Combine, terminal bool, children ...*Node) *Node {
	t.Helper()
	n, err := Set(c, terminal, children...)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	return n
}

func TestAndOrFold(t *testing.T) {
	s := newFakeSensors()
	s.inside["success/a"] = true

	yes := Detected("a", "success")
	no := Detected("b", "success")

	and := mustSet(t, And, false, yes, no)
	if met, _ := and.Evaluate(s); met {
		t.Error("AND [true, false] should be false")
	}

	or := mustSet(t, Or, false, yes, no)
	if met, _ := or.Evaluate(s); !met {
		t.Error("OR [true, false] should be true")
	}
}

func TestEmptySetFails(t *testing.T) {
	if _, err := Set(And, false); !errors.Is(err, ErrEmptyConditionSet) {
		t.Errorf("expected ErrEmptyConditionSet, got %v", err)
	}
	n := &Node{Kind: KindSet, Combine: Or}
	if err := n.Validate(); !errors.Is(err, ErrEmptyConditionSet) {
		t.Errorf("expected ErrEmptyConditionSet from literal, got %v", err)
	}
	nested := &Node{Kind: KindSet, Combine: And, Children: []*Node{Detected("a", "s"), {Kind: KindSet, Combine: Or}}}
	if _, err := NewTree(nested); !errors.Is(err, ErrEmptyConditionSet) {
		t.Errorf("expected nested empty set to be rejected, got %v", err)
	}
}

func TestEvaluateDoesNotShortCircuit(t *testing.T) {
	s := newFakeSensors()
	and := mustSet(t, And, false, Detected("a", "s"), Detected("b", "s"), NothingGrasped("g"))
	and.Evaluate(s)
	if s.queries != 3 {
		t.Errorf("expected all 3 children queried, got %d", s.queries)
	}

	s.queries = 0
	s.inside["s/a"] = true
	or := mustSet(t, Or, false, Detected("a", "s"), Detected("b", "s"))
	or.Evaluate(s)
	if s.queries != 2 {
		t.Errorf("expected both children queried, got %d", s.queries)
	}
}

func TestNestedSets(t *testing.T) {
	// (A or B) and C
	s := newFakeSensors()
	ab := mustSet(t, Or, false, Detected("a", "s"), Detected("b", "s"))
	root := mustSet(t, And, false, ab, NothingGrasped("gripper"))

	if met, _ := root.Evaluate(s); met {
		t.Error("expected unmet with neither A nor B")
	}
	s.inside["s/b"] = true
	if met, _ := root.Evaluate(s); !met {
		t.Error("expected met with B and empty gripper")
	}
	s.grasped["gripper"] = []string{"block"}
	if met, _ := root.Evaluate(s); met {
		t.Error("expected unmet while gripper holds an object")
	}
}

func TestJointPosition(t *testing.T) {
	s := newFakeSensors()
	above := JointPosition("button0_joint", 0.003, false)
	below := JointPosition("button0_joint", 0.003, true)

	if met, _ := above.Evaluate(s); met {
		t.Error("rest position should not exceed threshold")
	}
	if met, _ := below.Evaluate(s); !met {
		t.Error("rest position should be below threshold")
	}
	s.joints["button0_joint"] = 0.004
	if met, _ := above.Evaluate(s); !met {
		t.Error("pressed button should exceed threshold")
	}
}

func TestDetectedCountRecomputesMembership(t *testing.T) {
	s := newFakeSensors()
	n, err := DetectedCount([]string{"b0", "b1", "b2"}, "zone", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.inside["zone/b0"] = true
	if met, _ := n.Evaluate(s); met {
		t.Error("one of two should not be met")
	}
	s.inside["zone/b2"] = true
	if met, _ := n.Evaluate(s); !met {
		t.Error("two of two should be met")
	}
	// b0 leaves the zone again.
	s.inside["zone/b0"] = false
	if met, _ := n.Evaluate(s); met {
		t.Error("membership must be recomputed every evaluation")
	}
}

func TestDetectedCountValidation(t *testing.T) {
	cases := []struct {
		objects  []string
		required int
	}{
		{nil, 0},
		{[]string{"a"}, -1},
		{[]string{"a"}, 2},
	}
	for _, tc := range cases {
		if _, err := DetectedCount(tc.objects, "zone", tc.required); !errors.Is(err, ErrInvalidNode) {
			t.Errorf("%v/%d: expected ErrInvalidNode, got %v", tc.objects, tc.required, err)
		}
	}
}

func TestValidateRejectsMalformedNodes(t *testing.T) {
	bad := []*Node{
		nil,
		{Kind: "teleported"},
		{Kind: KindDetected, Object: "a"},
		{Kind: KindNothingGrasped},
		{Kind: KindJointPosition},
		{Kind: KindSet, Combine: "xor", Children: []*Node{Detected("a", "s")}},
	}
	for i, n := range bad {
		if err := n.Validate(); !errors.Is(err, ErrInvalidNode) {
			t.Errorf("case %d: expected ErrInvalidNode, got %v", i, err)
		}
	}
}

func TestTerminalSetReportsStop(t *testing.T) {
	s := newFakeSensors()
	s.inside["s/a"] = true
	terminal := mustSet(t, And, true, Detected("a", "s"))
	if met, keep := terminal.Evaluate(s); !met || keep {
		t.Errorf("expected (true, false), got (%v, %v)", met, keep)
	}
	plain := mustSet(t, And, false, Detected("a", "s"))
	if met, keep := plain.Evaluate(s); !met || !keep {
		t.Errorf("expected (true, true), got (%v, %v)", met, keep)
	}
}

func TestString(t *testing.T) {
	n := mustSet(t, And, false,
		mustSet(t, Or, false, Detected("a", "s"), JointPosition("j", 0.5, true)),
		NothingGrasped("g"),
	)
	want := "and(or(detected(a in s), joint(j < 0.5)), nothing_grasped(g))"
	if got := n.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
