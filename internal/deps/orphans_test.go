package deps

import (
	"reflect"
	"testing"
)

func TestClosure_CycleSafe(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"}, // cycle back to a
	}
	got := Closure("a", edges)
	if !got["b"] || !got["c"] {
		t.Errorf("Closure(a) = %v, want b and c", got)
	}
	if got["a"] {
		t.Error("closure should not contain its own start")
	}
}

func TestDependents(t *testing.T) {
	edges := map[string][]string{
		"requests": {"urllib3", "certifi"},
		"boto3":    {"urllib3"},
	}
	rev := Dependents(edges)
	if want := []string{"boto3", "requests"}; !reflect.DeepEqual(rev["urllib3"], want) {
		t.Errorf("dependents of urllib3 = %v, want %v", rev["urllib3"], want)
	}
	if want := []string{"requests"}; !reflect.DeepEqual(rev["certifi"], want) {
		t.Errorf("dependents of certifi = %v, want %v", rev["certifi"], want)
	}
}

func TestFindOrphans_SharedDepNotOrphaned(t *testing.T) {
	// A and B both depend on C. Removing A must not orphan C.
	edges := map[string][]string{
		"a": {"c"},
		"b": {"c"},
	}
	explicit := map[string]bool{"a": true, "b": true}

	orphans := FindOrphans("a", []string{"b", "c"}, edges, explicit)
	if len(orphans) != 0 {
		t.Errorf("c is still required by b, got orphans %v", orphans)
	}

	// After removing B as well, C has no remaining dependent.
	orphans = FindOrphans("b", []string{"c"}, edges, explicit)
	if !reflect.DeepEqual(orphans, []string{"c"}) {
		t.Errorf("orphans after removing b = %v, want [c]", orphans)
	}
}

func TestFindOrphans_TransitiveChain(t *testing.T) {
	// app -> liba -> libb; removing app orphans the whole chain.
	edges := map[string][]string{
		"app":  {"liba"},
		"liba": {"libb"},
	}
	explicit := map[string]bool{"app": true}

	orphans := FindOrphans("app", []string{"liba", "libb"}, edges, explicit)
	if !reflect.DeepEqual(orphans, []string{"liba", "libb"}) {
		t.Errorf("orphans = %v, want [liba libb]", orphans)
	}
}

func TestFindOrphans_FixedPointRescue(t *testing.T) {
	// app -> liba, app -> libb, other -> libb. libb is rescued by other,
	// and that rescue must not drag liba back in.
	edges := map[string][]string{
		"app":   {"liba", "libb"},
		"other": {"libb"},
	}
	explicit := map[string]bool{"app": true, "other": true}

	orphans := FindOrphans("app", []string{"liba", "libb", "other"}, edges, explicit)
	if !reflect.DeepEqual(orphans, []string{"liba"}) {
		t.Errorf("orphans = %v, want [liba]", orphans)
	}
}

func TestFindOrphans_ExplicitNeverOrphan(t *testing.T) {
	// libc was installed explicitly at some point even though app pulled
	// it in; it must never be proposed as an orphan.
	edges := map[string][]string{
		"app": {"libc"},
	}
	explicit := map[string]bool{"app": true, "libc": true}

	orphans := FindOrphans("app", []string{"libc"}, edges, explicit)
	if len(orphans) != 0 {
		t.Errorf("explicitly installed packages are never orphans, got %v", orphans)
	}
}

func TestFindOrphans_CandidateChainRescue(t *testing.T) {
	// app -> liba -> libb, other -> liba. liba is rescued by other, and
	// once kept it references libb, which must also be rescued.
	edges := map[string][]string{
		"app":   {"liba"},
		"liba":  {"libb"},
		"other": {"liba"},
	}
	explicit := map[string]bool{"app": true, "other": true}

	orphans := FindOrphans("app", []string{"liba", "libb", "other"}, edges, explicit)
	if len(orphans) != 0 {
		t.Errorf("both liba and libb are still referenced, got %v", orphans)
	}
}

func TestFindOrphans_NoDependencies(t *testing.T) {
	orphans := FindOrphans("standalone", []string{"six"}, map[string][]string{}, nil)
	if len(orphans) != 0 {
		t.Errorf("a package with no dependencies orphans nothing, got %v", orphans)
	}
}
