package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/BoonLang/boon-sub001/internal/arena"
)

// Canonical JSON encoding of payload values.
//
// Every variant encodes as a small tagged object so values round-trip
// through snapshots without ambiguity:
//
//	Int(5)        {"t":"int","v":5}
//	Text("x")     {"t":"text","v":"x"}
//	List{...}     {"t":"list","v":[{"k":"<key>","v":<value>},...]}
//	Flushed{...}  {"t":"flushed","v":<value>}
//
// Wrapper keys are ASCII and emitted in RFC 8785 order; object field keys
// are sorted by UTF-16 code units and NFC-normalized. The same bytes feed
// message idempotency keys and snapshot records, so any deviation here
// breaks replay determinism.

// MarshalCanonical encodes v as canonical JSON.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil payload value cannot be encoded (use Absent)")
	case Absent:
		buf.WriteString(`{"t":"absent"}`)
	case Skip:
		buf.WriteString(`{"t":"skip"}`)
	case Int:
		buf.WriteString(`{"t":"int","v":`)
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		buf.WriteByte('}')
	case Text:
		buf.WriteString(`{"t":"text","v":`)
		if err := writeCanonicalString(buf, string(val)); err != nil {
			return err
		}
		buf.WriteByte('}')
	case Bool:
		if val {
			buf.WriteString(`{"t":"bool","v":true}`)
		} else {
			buf.WriteString(`{"t":"bool","v":false}`)
		}
	case Tag:
		buf.WriteString(`{"t":"tag","v":`)
		if err := writeCanonicalString(buf, string(val)); err != nil {
			return err
		}
		buf.WriteByte('}')
	case Object:
		buf.WriteString(`{"t":"object","v":{`)
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := marshalValue(buf, val[k]); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
		buf.WriteString("}}")
	case Element:
		buf.WriteString(`{"k":`)
		if err := writeCanonicalString(buf, val.Key); err != nil {
			return err
		}
		buf.WriteString(`,"t":"element","v":`)
		if err := marshalValue(buf, val.Value); err != nil {
			return fmt.Errorf("element %q: %w", val.Key, err)
		}
		buf.WriteByte('}')
	case List:
		buf.WriteString(`{"t":"list","v":[`)
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"k":`)
			if err := writeCanonicalString(buf, e.Key); err != nil {
				return err
			}
			buf.WriteString(`,"v":`)
			if err := marshalValue(buf, e.Value); err != nil {
				return fmt.Errorf("element %q: %w", e.Key, err)
			}
			buf.WriteByte('}')
		}
		buf.WriteString("]}")
	case Ref:
		fmt.Fprintf(buf, `{"t":"ref","v":{"gen":%d,"index":%d}}`, val.Node.Gen, val.Node.Index)
	case Flushed:
		buf.WriteString(`{"t":"flushed","v":`)
		if err := marshalValue(buf, val.Inner); err != nil {
			return err
		}
		buf.WriteByte('}')
	case ListDelta:
		fmt.Fprintf(buf, `{"base":%d,"next":%d,"ops":[`, val.Base, val.Next)
		for i, op := range val.Ops {
			if i > 0 {
				buf.WriteByte(',')
			}
			fmt.Fprintf(buf, `{"index":%d,"k":`, op.Index)
			if err := writeCanonicalString(buf, op.Key); err != nil {
				return err
			}
			buf.WriteString(`,"op":`)
			if err := writeCanonicalString(buf, string(op.Op)); err != nil {
				return err
			}
			if op.Value != nil {
				buf.WriteString(`,"v":`)
				if err := marshalValue(buf, op.Value); err != nil {
					return fmt.Errorf("op %d: %w", i, err)
				}
			}
			buf.WriteByte('}')
		}
		buf.WriteString(`],"t":"list_delta"}`)
	case ObjectDelta:
		fmt.Fprintf(buf, `{"base":%d,"field":`, val.Base)
		if err := writeCanonicalString(buf, val.Field); err != nil {
			return err
		}
		fmt.Fprintf(buf, `,"next":%d,"t":"object_delta","v":`, val.Next)
		if err := marshalValue(buf, val.Value); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported payload type %T", v)
	}
	return nil
}

// writeCanonicalString appends an RFC 8785 JSON string: NFC-normalized,
// no HTML escaping, only control characters, backslash and quote escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	out := tmp.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	buf.Write(out)
	return nil
}

// UnmarshalCanonical decodes canonical JSON produced by MarshalCanonical.
func UnmarshalCanonical(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return decodeValue(raw)
}

func decodeValue(raw any) (Value, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload value must be a tagged object, got %T", raw)
	}
	tag, _ := obj["t"].(string)

	switch tag {
	case "absent":
		return Absent{}, nil
	case "skip":
		return Skip{}, nil
	case "int":
		n, err := decodeInt(obj["v"])
		if err != nil {
			return nil, err
		}
		return Int(n), nil
	case "text":
		s, ok := obj["v"].(string)
		if !ok {
			return nil, fmt.Errorf("text payload: value is %T", obj["v"])
		}
		return Text(s), nil
	case "bool":
		b, ok := obj["v"].(bool)
		if !ok {
			return nil, fmt.Errorf("bool payload: value is %T", obj["v"])
		}
		return Bool(b), nil
	case "tag":
		s, ok := obj["v"].(string)
		if !ok {
			return nil, fmt.Errorf("tag payload: value is %T", obj["v"])
		}
		return Tag(s), nil
	case "object":
		fields, ok := obj["v"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("object payload: value is %T", obj["v"])
		}
		out := make(Object, len(fields))
		for k, fv := range fields {
			dv, err := decodeValue(fv)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = dv
		}
		return out, nil
	case "element":
		key, _ := obj["k"].(string)
		inner, err := decodeValue(obj["v"])
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", key, err)
		}
		return Element{Key: key, Value: inner}, nil
	case "list":
		elems, ok := obj["v"].([]any)
		if !ok {
			return nil, fmt.Errorf("list payload: value is %T", obj["v"])
		}
		out := make(List, 0, len(elems))
		for i, ev := range elems {
			em, ok := ev.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("list element %d: %T", i, ev)
			}
			key, _ := em["k"].(string)
			dv, err := decodeValue(em["v"])
			if err != nil {
				return nil, fmt.Errorf("list element %q: %w", key, err)
			}
			out = append(out, Element{Key: key, Value: dv})
		}
		return out, nil
	case "ref":
		rm, ok := obj["v"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ref payload: value is %T", obj["v"])
		}
		gen, err := decodeInt(rm["gen"])
		if err != nil {
			return nil, fmt.Errorf("ref gen: %w", err)
		}
		idx, err := decodeInt(rm["index"])
		if err != nil {
			return nil, fmt.Errorf("ref index: %w", err)
		}
		return Ref{Node: arena.Handle{Index: uint32(idx), Gen: uint32(gen)}}, nil
	case "flushed":
		inner, err := decodeValue(obj["v"])
		if err != nil {
			return nil, fmt.Errorf("flushed inner: %w", err)
		}
		return Flushed{Inner: inner}, nil
	case "list_delta":
		return decodeListDelta(obj)
	case "object_delta":
		return decodeObjectDelta(obj)
	default:
		return nil, fmt.Errorf("unknown payload tag %q", tag)
	}
}

func decodeListDelta(obj map[string]any) (Value, error) {
	base, err := decodeInt(obj["base"])
	if err != nil {
		return nil, fmt.Errorf("list_delta base: %w", err)
	}
	next, err := decodeInt(obj["next"])
	if err != nil {
		return nil, fmt.Errorf("list_delta next: %w", err)
	}
	rawOps, ok := obj["ops"].([]any)
	if !ok {
		return nil, fmt.Errorf("list_delta ops: %T", obj["ops"])
	}
	ops := make([]ListOp, 0, len(rawOps))
	for i, ro := range rawOps {
		om, ok := ro.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("list_delta op %d: %T", i, ro)
		}
		idx, err := decodeInt(om["index"])
		if err != nil {
			return nil, fmt.Errorf("list_delta op %d index: %w", i, err)
		}
		key, _ := om["k"].(string)
		kind, _ := om["op"].(string)
		op := ListOp{Op: OpKind(kind), Key: key, Index: int(idx)}
		if vv, present := om["v"]; present {
			dv, err := decodeValue(vv)
			if err != nil {
				return nil, fmt.Errorf("list_delta op %d value: %w", i, err)
			}
			op.Value = dv
		}
		ops = append(ops, op)
	}
	return ListDelta{Base: base, Next: next, Ops: ops}, nil
}

func decodeObjectDelta(obj map[string]any) (Value, error) {
	base, err := decodeInt(obj["base"])
	if err != nil {
		return nil, fmt.Errorf("object_delta base: %w", err)
	}
	next, err := decodeInt(obj["next"])
	if err != nil {
		return nil, fmt.Errorf("object_delta next: %w", err)
	}
	field, _ := obj["field"].(string)
	dv, err := decodeValue(obj["v"])
	if err != nil {
		return nil, fmt.Errorf("object_delta value: %w", err)
	}
	return ObjectDelta{Base: base, Next: next, Field: field, Value: dv}, nil
}

func decodeInt(v any) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("not an int64 (floats are forbidden): %s", n)
	}
	return i, nil
}
