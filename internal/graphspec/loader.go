package graphspec

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/BoonLang/boon-sub001/internal/arena"
	"github.com/BoonLang/boon-sub001/internal/graph"
	"github.com/BoonLang/boon-sub001/internal/payload"
)

// Error codes for definition loading.
const (
	ErrCodeNotFound    = "SPEC_NOT_FOUND"
	ErrCodeNoFiles     = "SPEC_NO_FILES"
	ErrCodeLoadFailed  = "SPEC_LOAD_FAILED"
	ErrCodeBuildFailed = "SPEC_BUILD_FAILED"
	ErrCodeBadNode     = "SPEC_BAD_NODE"
	ErrCodeBadConn     = "SPEC_BAD_CONNECTION"
)

// LoadError reports a definition problem with its CUE position when one
// is available.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Program is a loaded, validated reactive graph plus its metadata.
type Program struct {
	Name  string
	Graph *graph.Graph
	// Handles maps declared node names to their allocated handles, in
	// case the host needs direct access (tests, snapshot tooling).
	Handles map[string]arena.Handle
}

// LoadDir loads every CUE file in dir as one instance and compiles the
// program definition it declares.
func LoadDir(dir string, reg *Registry) (*Program, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definition directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing definition directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	return Compile(value, reg)
}

// LoadSource compiles a program definition from CUE source text. Test
// harnesses use this to define graphs inline.
func LoadSource(src string, reg *Registry) (*Program, error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("compiling CUE source: %v", err)}
	}
	return Compile(value, reg)
}

// Compile turns a built CUE value holding a program declaration into a
// validated graph. Nodes allocate in declaration order, so identical
// definitions always produce identical handles.
func Compile(value cue.Value, reg *Registry) (*Program, error) {
	progVal := value.LookupPath(cue.ParsePath("program"))
	if !progVal.Exists() {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: "definition has no program block", Pos: value.Pos()}
	}

	name, err := progVal.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("program.name: %v", err), Pos: progVal.Pos()}
	}

	b := graph.NewBuilder()
	handles := make(map[string]arena.Handle)

	nodesVal := progVal.LookupPath(cue.ParsePath("nodes"))
	iter, err := nodesVal.List()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("program.nodes must be a list: %v", err), Pos: nodesVal.Pos()}
	}
	var observations [][2]string
	for iter.Next() {
		nodeName, obs, err := compileNode(b, iter.Value(), reg, handles)
		if err != nil {
			return nil, err
		}
		for _, target := range obs {
			observations = append(observations, [2]string{nodeName, target})
		}
	}

	connsVal := progVal.LookupPath(cue.ParsePath("connections"))
	if connsVal.Exists() {
		citer, err := connsVal.List()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBadConn, Message: fmt.Sprintf("program.connections must be a list: %v", err), Pos: connsVal.Pos()}
		}
		for citer.Next() {
			if err := compileConnection(b, citer.Value(), handles); err != nil {
				return nil, err
			}
		}
	}

	// Observations resolve after connections so a declared read can
	// target any node regardless of declaration order.
	for _, obs := range observations {
		reader, target := obs[0], obs[1]
		th, ok := handles[target]
		if !ok {
			return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q observes unknown node %q", reader, target)}
		}
		b.Observe(handles[reader], th)
	}

	g, err := b.Build()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}

	return &Program{Name: name, Graph: g, Handles: handles}, nil
}

func compileNode(b *graph.Builder, v cue.Value, reg *Registry, handles map[string]arena.Handle) (string, []string, error) {
	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node name: %v", err), Pos: v.Pos()}
	}
	if _, dup := handles[name]; dup {
		return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("duplicate node name %q", name), Pos: v.Pos()}
	}

	kindStr, err := v.LookupPath(cue.ParsePath("kind")).String()
	if err != nil {
		return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q kind: %v", name, err), Pos: v.Pos()}
	}

	var opts []graph.NodeOption
	if unwrap, _ := v.LookupPath(cue.ParsePath("unwrap")).Bool(); unwrap {
		opts = append(opts, graph.WithUnwrap())
	}

	var h arena.Handle
	switch graph.KindFromString(kindStr) {
	case graph.KindProducer:
		val, err := decodeValue(v.LookupPath(cue.ParsePath("value")))
		if err != nil {
			return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("producer %q value: %v", name, err), Pos: v.Pos()}
		}
		h = b.Producer(name, val)

	case graph.KindWire:
		h = b.Wire(name)

	case graph.KindRouter:
		h = b.Router(name)

	case graph.KindBus:
		h = b.Bus(name)

	case graph.KindCombiner, graph.KindRegister:
		seed, body, err := decodeStateful(v, reg, name)
		if err != nil {
			return "", nil, err
		}
		if graph.KindFromString(kindStr) == graph.KindCombiner {
			h = b.Combiner(name, seed, body)
		} else {
			h = b.Register(name, seed, body)
		}

	case graph.KindTransformer:
		bodyName, err := v.LookupPath(cue.ParsePath("body")).String()
		if err != nil {
			return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("transformer %q body: %v", name, err), Pos: v.Pos()}
		}
		body, err := reg.Lookup(bodyName)
		if err != nil {
			return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("transformer %q: %v", name, err), Pos: v.Pos()}
		}
		h = b.Transformer(name, body, opts...)

	case graph.KindPatternMux:
		mode := graph.Snapshot
		if m, _ := v.LookupPath(cue.ParsePath("mode")).String(); m == "streaming" {
			mode = graph.Streaming
		}
		arms, err := decodeArms(v.LookupPath(cue.ParsePath("arms")), reg, name)
		if err != nil {
			return "", nil, err
		}
		h = b.PatternMux(name, mode, arms, opts...)

	case graph.KindSwitchedWire:
		h = b.SwitchedWire(name)

	case graph.KindPad:
		h = b.Pad(name)

	default:
		return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q: unknown kind %q", name, kindStr), Pos: v.Pos()}
	}

	handles[name] = h

	var observes []string
	obsVal := v.LookupPath(cue.ParsePath("observe"))
	if obsVal.Exists() {
		oiter, err := obsVal.List()
		if err != nil {
			return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q observe: %v", name, err), Pos: v.Pos()}
		}
		for oiter.Next() {
			target, err := oiter.Value().String()
			if err != nil {
				return "", nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q observe: %v", name, err), Pos: v.Pos()}
			}
			observes = append(observes, target)
		}
	}
	return name, observes, nil
}

func decodeStateful(v cue.Value, reg *Registry, name string) (payload.Value, graph.Body, error) {
	seed, err := decodeValue(v.LookupPath(cue.ParsePath("seed")))
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q seed: %v", name, err), Pos: v.Pos()}
	}
	bodyName, err := v.LookupPath(cue.ParsePath("body")).String()
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q body: %v", name, err), Pos: v.Pos()}
	}
	body, err := reg.Lookup(bodyName)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("node %q: %v", name, err), Pos: v.Pos()}
	}
	return seed, body, nil
}

func decodeArms(v cue.Value, reg *Registry, name string) ([]graph.Arm, error) {
	if !v.Exists() {
		return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("pattern mux %q has no arms", name)}
	}
	iter, err := v.List()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("pattern mux %q arms: %v", name, err), Pos: v.Pos()}
	}

	var arms []graph.Arm
	for iter.Next() {
		av := iter.Value()
		var arm graph.Arm

		switch {
		case av.LookupPath(cue.ParsePath("tag")).Exists():
			tag, err := av.LookupPath(cue.ParsePath("tag")).String()
			if err != nil {
				return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("pattern mux %q arm tag: %v", name, err), Pos: av.Pos()}
			}
			arm.Pattern = graph.ByTag(tag)

		case av.LookupPath(cue.ParsePath("literal")).Exists():
			lit, err := decodeValue(av.LookupPath(cue.ParsePath("literal")))
			if err != nil {
				return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("pattern mux %q arm literal: %v", name, err), Pos: av.Pos()}
			}
			arm.Pattern = graph.Lit(lit)

		default:
			arm.Pattern = graph.Any()
		}

		if bv := av.LookupPath(cue.ParsePath("body")); bv.Exists() {
			bodyName, err := bv.String()
			if err != nil {
				return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("pattern mux %q arm body: %v", name, err), Pos: av.Pos()}
			}
			body, err := reg.Lookup(bodyName)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeBadNode, Message: fmt.Sprintf("pattern mux %q: %v", name, err), Pos: av.Pos()}
			}
			arm.Body = body
		}
		arms = append(arms, arm)
	}
	return arms, nil
}

func compileConnection(b *graph.Builder, v cue.Value, handles map[string]arena.Handle) error {
	from, err := v.LookupPath(cue.ParsePath("from")).String()
	if err != nil {
		return &LoadError{Code: ErrCodeBadConn, Message: fmt.Sprintf("connection from: %v", err), Pos: v.Pos()}
	}
	to, err := v.LookupPath(cue.ParsePath("to")).String()
	if err != nil {
		return &LoadError{Code: ErrCodeBadConn, Message: fmt.Sprintf("connection to: %v", err), Pos: v.Pos()}
	}

	fh, ok := handles[from]
	if !ok {
		return &LoadError{Code: ErrCodeBadConn, Message: fmt.Sprintf("connection from unknown node %q", from), Pos: v.Pos()}
	}
	th, ok := handles[to]
	if !ok {
		return &LoadError{Code: ErrCodeBadConn, Message: fmt.Sprintf("connection to unknown node %q", to), Pos: v.Pos()}
	}

	if fv := v.LookupPath(cue.ParsePath("field")); fv.Exists() {
		field, err := fv.String()
		if err != nil {
			return &LoadError{Code: ErrCodeBadConn, Message: fmt.Sprintf("connection field: %v", err), Pos: v.Pos()}
		}
		b.ConnectField(fh, field, th)
		return nil
	}

	if ev := v.LookupPath(cue.ParsePath("element")); ev.Exists() {
		element, err := ev.String()
		if err != nil {
			return &LoadError{Code: ErrCodeBadConn, Message: fmt.Sprintf("connection element: %v", err), Pos: v.Pos()}
		}
		b.ConnectElement(fh, element, th)
		return nil
	}

	b.Connect(fh, th)
	return nil
}

// decodeValue maps a CUE literal onto a payload value. Structs become
// objects; a struct with only a string "tag" field stays an object so
// tag patterns can still match it.
func decodeValue(v cue.Value) (payload.Value, error) {
	if !v.Exists() {
		return payload.Absent{}, nil
	}

	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return payload.Int(n), nil

	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return payload.Text(s), nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return payload.Bool(b), nil

	case cue.StructKind:
		obj := payload.Object{}
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		for iter.Next() {
			// A string "tag" field decodes as a tag payload so tag
			// patterns match tagged objects from definitions.
			if iter.Label() == "tag" && iter.Value().Kind() == cue.StringKind {
				s, err := iter.Value().String()
				if err != nil {
					return nil, err
				}
				obj["tag"] = payload.Tag(s)
				continue
			}
			fv, err := decodeValue(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", iter.Label(), err)
			}
			obj[iter.Label()] = fv
		}
		return obj, nil

	case cue.ListKind:
		var list payload.List
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		i := 0
		for iter.Next() {
			ev, err := decodeValue(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list = append(list, payload.Element{Key: strconv.Itoa(i), Value: ev})
			i++
		}
		return list, nil

	default:
		return nil, fmt.Errorf("unsupported literal kind %v", v.Kind())
	}
}

// findCUEFiles returns the .cue files directly under dir, sorted by the
// filesystem walk order (lexical).
func findCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".cue" {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	return out, nil
}
