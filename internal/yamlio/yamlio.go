// Package yamlio implements the YAML binding layer (component F): the
// single place that knows how a Context's registry and store map onto
// the on-disk document, in both directions. Nothing outside this
// package needs to know the document's key order or the inline shape
// a type reference takes for a given Kind.
package yamlio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/andsch11/fremgen/internal/extractctx"
	"github.com/andsch11/fremgen/internal/position"
	"github.com/andsch11/fremgen/internal/store"
	"github.com/andsch11/fremgen/internal/types"
	"gopkg.in/yaml.v3"
)

// document is the top-level YAML mapping. Field order here is the
// field order yaml.v3 writes, and it is load-bearing: the six keys
// must appear in the order returnValues, types, functions, sockets,
// configurations, errors.
type document struct {
	ReturnValues   []returnValueYAML   `yaml:"returnValues"`
	Types          []typeYAML          `yaml:"types"`
	Functions      []functionYAML      `yaml:"functions"`
	Sockets        []socketYAML        `yaml:"sockets"`
	Configurations []configurationYAML `yaml:"configurations"`
	Errors         []errorYAML         `yaml:"errors"`
}

type returnValueYAML struct {
	Name  string `yaml:"name"`
	Value int64  `yaml:"value"`
}

type enumConstantYAML struct {
	Name  string `yaml:"name"`
	Value int64  `yaml:"value"`
}

type fieldYAML struct {
	Name string         `yaml:"name"`
	Type map[string]any `yaml:"type"`
}

// locationYAML is a (file, line) pair: a type's declarationLocation is
// where it was declared; expositionLocation is where its alias (if any)
// was declared, and falls back to the declaration site otherwise.
type locationYAML struct {
	File string `yaml:"file"`
	Line int    `yaml:"line"`
}

// typeYAML is one entry of the top-level "types" list: the user-defined
// (enum or struct) types only, builtins never appear here.
type typeYAML struct {
	Kind                string             `yaml:"kind"`
	ID                  string             `yaml:"id"`
	FullyQualifiedName  string             `yaml:"fullyQualifiedName"`
	Hash                uint32             `yaml:"hash"`
	DeclarationLocation locationYAML       `yaml:"declarationLocation"`
	ExpositionLocation  locationYAML       `yaml:"expositionLocation"`
	UnderlyingType      string             `yaml:"underlyingType,omitempty"`
	Constants           []enumConstantYAML `yaml:"constants,omitempty"`
	Fields              []fieldYAML        `yaml:"fields,omitempty"`
	ConfigurationVersion int               `yaml:"configurationVersion,omitempty"`
}

type returnYAML struct {
	Type               map[string]any `yaml:"type"`
	FullyQualifiedType string         `yaml:"fullyQualifiedType,omitempty"`
	DecayedType        string         `yaml:"decayedType,omitempty"`
}

type parameterYAML struct {
	Name               string         `yaml:"name"`
	Direction          string         `yaml:"direction"`
	Type               map[string]any `yaml:"type"`
	FullyQualifiedType string         `yaml:"fullyQualifiedType,omitempty"`
	DecayedType        string         `yaml:"decayedType,omitempty"`
}

type instanceYAML struct {
	Getter  string `yaml:"getter"`
	Pointer bool   `yaml:"pointer"`
}

type functionYAML struct {
	ID                 string          `yaml:"id"`
	Code               string          `yaml:"code"`
	Via                string          `yaml:"via,omitempty"`
	Return             returnYAML      `yaml:"return"`
	Parameters         []parameterYAML `yaml:"parameters"`
	Doc                string          `yaml:"doc,omitempty"`
	Tags               []string        `yaml:"tags,omitempty"`
	Kind               string          `yaml:"kind"`
	FullyQualifiedName string          `yaml:"fullyQualifiedName"`
	File               string          `yaml:"file,omitempty"`
	Line               int             `yaml:"line,omitempty"`
	Noexcept           bool            `yaml:"noexcept,omitempty"`
	Qualifiers         []string        `yaml:"qualifiers,omitempty"`
	Registerable       bool            `yaml:"registerable,omitempty"`
	Instance           *instanceYAML   `yaml:"instance,omitempty"`
	Signature          string          `yaml:"signature"`
}

type versionTypeYAML struct {
	Version uint32         `yaml:"version"`
	Type    map[string]any `yaml:"type"`
}

type configurationYAML struct {
	ID           string            `yaml:"id"`
	VersionTypes []versionTypeYAML `yaml:"versionTypes"`
	SetCode      string            `yaml:"setCode"`
	GetCode      string            `yaml:"getCode"`
	VersionCode  string            `yaml:"versionCode"`
	Tags         []string          `yaml:"tags,omitempty"`
}

type errorYAML struct {
	ID          string `yaml:"id,omitempty"`
	Value       int64  `yaml:"value"`
	Description string `yaml:"description,omitempty"`
	ServiceText string `yaml:"serviceText,omitempty"`
	UserText    string `yaml:"userText,omitempty"`
	Comment     string `yaml:"comment,omitempty"`
}

type socketYAML struct {
	ID         string         `yaml:"id"`
	Port       uint16         `yaml:"port"`
	PacketType map[string]any `yaml:"packetType"`
	Tags       []string       `yaml:"tags,omitempty"`
}

// Marshal renders ctx's registry and store as the six-section YAML
// document, deduplicating configurations, errors and sockets by a
// canonical order over their value tuples first.
func Marshal(ctx *extractctx.Context) ([]byte, error) {
	doc := document{
		ReturnValues:   returnValuesToYAML(ctx.Store.ReturnValues),
		Types:          typesToYAML(ctx.Registry.RegisteredTypes()),
		Functions:      functionsToYAML(ctx.Store.Functions),
		Sockets:        socketsToYAML(dedupeSockets(ctx.Store.Sockets)),
		Configurations: configurationsToYAML(dedupeConfigurations(ctx.Store.Configurations)),
		Errors:         errorsToYAML(dedupeErrors(ctx.Store.Errors)),
	}
	return yaml.Marshal(&doc)
}

// Load parses data and merges every section into ctx, resolving type
// references against ctx.Registry by id. It is the counterpart to
// Marshal used for --incremental's append-merge mode: the caller loads
// the existing output into a fresh Context before running extraction
// again, so new declarations accumulate on top of what is already
// there.
func Load(ctx *extractctx.Context, data []byte) error {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse incremental output: %w", err)
	}

	for _, ty := range doc.Types {
		if err := registerTypeYAML(ctx, ty); err != nil {
			return fmt.Errorf("type %q: %w", ty.ID, err)
		}
	}
	for _, rv := range doc.ReturnValues {
		ctx.Store.AddReturnValue(store.ReturnValue{ID: rv.Name, Value: rv.Value})
	}
	for _, fn := range doc.Functions {
		sfn, err := functionFromYAML(ctx, fn)
		if err != nil {
			return fmt.Errorf("function %q: %w", fn.FullyQualifiedName, err)
		}
		ctx.Store.AddFunction(sfn)
	}
	for _, sock := range doc.Sockets {
		ssock, err := socketFromYAML(ctx, sock)
		if err != nil {
			return fmt.Errorf("socket %q: %w", sock.ID, err)
		}
		ctx.Store.AddSocket(ssock)
	}
	for _, cfg := range doc.Configurations {
		scfg, err := configurationFromYAML(ctx, cfg)
		if err != nil {
			return fmt.Errorf("configuration %q: %w", cfg.ID, err)
		}
		ctx.Store.AddConfiguration(scfg)
	}
	for _, errDecl := range doc.Errors {
		ctx.Store.AddError(errorFromYAML(errDecl))
	}
	return nil
}

func returnValuesToYAML(rvs []store.ReturnValue) []returnValueYAML {
	out := make([]returnValueYAML, 0, len(rvs))
	for _, rv := range rvs {
		out = append(out, returnValueYAML{Name: rv.ID, Value: rv.Value})
	}
	return out
}

func typesToYAML(ts []*types.InterfaceType) []typeYAML {
	out := make([]typeYAML, 0, len(ts))
	for _, t := range ts {
		entry := typeYAML{
			Kind:                 t.Kind.String(),
			ID:                   t.ID,
			FullyQualifiedName:   t.FullyQualifiedName,
			Hash:                 t.Hash,
			DeclarationLocation:  locationToYAML(t.DeclarationLocation),
			ExpositionLocation:   locationToYAML(t.ExpositionLocation),
			UnderlyingType:       t.EnumUnderlying,
			ConfigurationVersion: t.ConfigurationVersion,
		}
		for _, c := range t.EnumConstants {
			entry.Constants = append(entry.Constants, enumConstantYAML{Name: c.Name, Value: c.Value})
		}
		for _, f := range t.Fields {
			entry.Fields = append(entry.Fields, fieldYAML{Name: f.Name, Type: typeRefToYAML(f.Type)})
		}
		out = append(out, entry)
	}
	return out
}

// typeRefToYAML renders a reference to t the way §6 requires at every
// embedding site (a function parameter, a struct field, a socket's
// packet type, a configuration's version type): builtin/enum/struct
// collapse to {kind, id}; arrays and strings expand inline with their
// element and size; optional/future carry one underlying type; variant
// carries all of its alternatives.
func typeRefToYAML(t *types.InterfaceType) map[string]any {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case types.KindBuiltIn, types.KindEnum, types.KindStruct:
		return map[string]any{"kind": t.Kind.String(), "id": t.ID}
	case types.KindFixedArray, types.KindFixedString:
		return map[string]any{
			"kind":        t.Kind.String(),
			"elementType": typeRefToYAML(t.Element),
			"size":        t.Size,
		}
	case types.KindBoundedArray, types.KindBoundedString:
		return map[string]any{
			"kind":        t.Kind.String(),
			"elementType": typeRefToYAML(t.Element),
			"sizeType":    typeRefToYAML(t.SizeType),
			"minSize":     t.MinSize,
			"maxSize":     t.MaxSize,
		}
	case types.KindOptional, types.KindFuture:
		return map[string]any{
			"kind":           t.Kind.String(),
			"underlyingType": typeRefToYAML(t.Underlying),
		}
	case types.KindVariant:
		alts := make([]map[string]any, 0, len(t.Alternatives))
		for _, alt := range t.Alternatives {
			alts = append(alts, typeRefToYAML(alt))
		}
		return map[string]any{"kind": t.Kind.String(), "underlyingTypes": alts}
	default:
		return map[string]any{"kind": t.Kind.String(), "id": t.ID}
	}
}

func locationToYAML(p position.Position) locationYAML {
	return locationYAML{File: p.Filename, Line: p.Line}
}

func locationFromYAML(l locationYAML) position.Position {
	return position.Position{Filename: l.File, Line: l.Line}
}

// typeRefFromYAML is the inverse of typeRefToYAML. Named kinds resolve
// against ctx.Registry by id and fail if the registry has no entry for
// it yet; composite kinds are rebuilt fresh from their inline shape,
// recursing for any nested reference.
func typeRefFromYAML(ctx *extractctx.Context, m map[string]any) (*types.InterfaceType, error) {
	if m == nil {
		return nil, nil
	}
	kind, _ := m["kind"].(string)
	switch kind {
	case "builtin", "enum", "struct":
		id, _ := m["id"].(string)
		t, ok := ctx.Registry.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown type reference %q", id)
		}
		return t, nil
	case "fixedArray", "fixedString":
		elem, err := typeRefFromYAML(ctx, asMap(m["elementType"]))
		if err != nil {
			return nil, err
		}
		k := types.KindFixedArray
		if kind == "fixedString" {
			k = types.KindFixedString
		}
		return &types.InterfaceType{Kind: k, Element: elem, Size: asUint64(m["size"])}, nil
	case "boundedArray", "boundedString":
		elem, err := typeRefFromYAML(ctx, asMap(m["elementType"]))
		if err != nil {
			return nil, err
		}
		sizeType, err := typeRefFromYAML(ctx, asMap(m["sizeType"]))
		if err != nil {
			return nil, err
		}
		k := types.KindBoundedArray
		if kind == "boundedString" {
			k = types.KindBoundedString
		}
		return &types.InterfaceType{
			Kind:     k,
			Element:  elem,
			SizeType: sizeType,
			MinSize:  asUint64(m["minSize"]),
			MaxSize:  asUint64(m["maxSize"]),
		}, nil
	case "optional", "future":
		underlying, err := typeRefFromYAML(ctx, asMap(m["underlyingType"]))
		if err != nil {
			return nil, err
		}
		k := types.KindOptional
		if kind == "future" {
			k = types.KindFuture
		}
		return &types.InterfaceType{Kind: k, Underlying: underlying}, nil
	case "variant":
		rawAlts, _ := m["underlyingTypes"].([]any)
		alts := make([]*types.InterfaceType, 0, len(rawAlts))
		for _, raw := range rawAlts {
			alt, err := typeRefFromYAML(ctx, asMap(raw))
			if err != nil {
				return nil, err
			}
			alts = append(alts, alt)
		}
		return &types.InterfaceType{Kind: types.KindVariant, Alternatives: alts}, nil
	default:
		return nil, fmt.Errorf("unrecognized type reference kind %q", kind)
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	default:
		return 0
	}
}

// registerTypeYAML rebuilds the InterfaceType ty describes and installs
// it in ctx.Registry, resolving field references against types the
// document has already registered (doc.Types is written in
// registration order, so earlier entries are always already present by
// the time a later struct's fields reference them).
func registerTypeYAML(ctx *extractctx.Context, ty typeYAML) error {
	fqn := ty.FullyQualifiedName
	if fqn == "" {
		fqn = ty.ID
	}
	out := &types.InterfaceType{
		FullyQualifiedName:   fqn,
		ID:                   ty.ID,
		DeclarationLocation:  locationFromYAML(ty.DeclarationLocation),
		ExpositionLocation:   locationFromYAML(ty.ExpositionLocation),
		EnumUnderlying:       ty.UnderlyingType,
		ConfigurationVersion: ty.ConfigurationVersion,
	}
	switch ty.Kind {
	case "enum":
		out.Kind = types.KindEnum
		for _, c := range ty.Constants {
			out.EnumConstants = append(out.EnumConstants, types.EnumConstant{Name: c.Name, Value: c.Value})
		}
	case "struct":
		out.Kind = types.KindStruct
		for _, f := range ty.Fields {
			ft, err := typeRefFromYAML(ctx, f.Type)
			if err != nil {
				return err
			}
			out.Fields = append(out.Fields, types.StructField{Name: f.Name, Type: ft})
		}
	default:
		return fmt.Errorf("unsupported top-level type kind %q", ty.Kind)
	}
	ctx.Registry.Register(out)
	if ty.ID != "" && ty.ID != fqn {
		ctx.Registry.SetAlias(ty.ID, fqn, out.ExpositionLocation)
	}
	return nil
}

func functionsToYAML(fns []store.RpcFunction) []functionYAML {
	out := make([]functionYAML, 0, len(fns))
	for _, fn := range fns {
		entry := functionYAML{
			ID:                 fn.ID,
			Code:               hex32(fn.Annotation.Code),
			Via:                fn.Annotation.Via,
			Return:             returnToYAML(fn.ReturnType),
			Doc:                fn.DocString,
			Tags:               fn.Annotation.Tags,
			Kind:               functionKindYAML(fn.Kind),
			FullyQualifiedName: fn.FullyQualifiedName,
			File:               fn.FileName,
			Line:               fn.Line,
			Noexcept:           fn.IsNoexcept,
			Qualifiers:         fn.Qualifiers,
			Registerable:       fn.Registerable,
			Signature:          buildSignature(fn),
		}
		for _, p := range fn.Parameters {
			entry.Parameters = append(entry.Parameters, parameterToYAML(p))
		}
		if fn.Invokee != nil {
			entry.Instance = &instanceYAML{Getter: fn.Invokee.Expression, Pointer: fn.Invokee.IsPointer}
		}
		out = append(out, entry)
	}
	return out
}

func functionKindYAML(k store.FunctionKind) string {
	switch k {
	case store.KindStatic:
		return "static"
	case store.KindMember:
		return "member"
	default:
		return "free"
	}
}

func functionKindFromYAML(s string) store.FunctionKind {
	switch s {
	case "static":
		return store.KindStatic
	case "member":
		return store.KindMember
	default:
		return store.KindFree
	}
}

func returnToYAML(r store.ReturnType) returnYAML {
	return returnYAML{
		Type:               typeRefToYAML(r.Type),
		FullyQualifiedType: r.FullyQualifiedType,
		DecayedType:        r.DecayedType,
	}
}

func parameterToYAML(p store.Parameter) parameterYAML {
	dir := "in"
	if p.Direction == store.DirOut {
		dir = "out"
	}
	return parameterYAML{
		Name:               p.Name,
		Direction:          dir,
		Type:               typeRefToYAML(p.Type),
		FullyQualifiedType: p.FullyQualifiedType,
		DecayedType:        p.DecayedType,
	}
}

// buildSignature renders the derived C++-like signature string §6
// requires alongside every function entry.
func buildSignature(fn store.RpcFunction) string {
	var params []string
	for _, p := range fn.Parameters {
		spelling := p.FullyQualifiedType
		if p.Direction == store.DirOut {
			spelling += "&"
		} else if p.Type != nil && p.Type.Kind == types.KindStruct {
			spelling = "const " + spelling + "&"
		}
		params = append(params, fmt.Sprintf("%s %s", spelling, p.Name))
	}
	qualifiers := ""
	if len(fn.Qualifiers) > 0 {
		qualifiers = " " + strings.Join(fn.Qualifiers, " ")
	}
	if fn.IsNoexcept {
		qualifiers += " noexcept"
	}
	return fmt.Sprintf("%s %s(%s)%s", fn.ReturnType.FullyQualifiedType, fn.FullyQualifiedName, strings.Join(params, ", "), qualifiers)
}

func functionFromYAML(ctx *extractctx.Context, fn functionYAML) (store.RpcFunction, error) {
	code, err := parseHex32(fn.Code)
	if err != nil {
		return store.RpcFunction{}, err
	}
	retType, err := typeRefFromYAML(ctx, fn.Return.Type)
	if err != nil {
		return store.RpcFunction{}, err
	}
	out := store.RpcFunction{
		ID: fn.ID,
		Annotation: store.Annotation{
			Code: code,
			Alias: fn.ID,
			Via:   fn.Via,
			Tags:  fn.Tags,
		},
		ReturnType: store.ReturnType{TypeUse: store.TypeUse{
			Type:               retType,
			FullyQualifiedType: fn.Return.FullyQualifiedType,
			DecayedType:        fn.Return.DecayedType,
		}},
		DocString:          fn.Doc,
		Kind:               functionKindFromYAML(fn.Kind),
		FullyQualifiedName: fn.FullyQualifiedName,
		FileName:           fn.File,
		Line:               fn.Line,
		IsNoexcept:         fn.Noexcept,
		Qualifiers:         fn.Qualifiers,
		Registerable:       fn.Registerable,
	}
	if fn.Instance != nil {
		out.Invokee = &store.Invokee{Expression: fn.Instance.Getter, IsPointer: fn.Instance.Pointer}
	}
	for _, p := range fn.Parameters {
		pType, err := typeRefFromYAML(ctx, p.Type)
		if err != nil {
			return store.RpcFunction{}, err
		}
		dir := store.DirIn
		if p.Direction == "out" {
			dir = store.DirOut
		}
		out.Parameters = append(out.Parameters, store.Parameter{
			Name:      p.Name,
			Direction: dir,
			TypeUse:   store.TypeUse{Type: pType, FullyQualifiedType: p.FullyQualifiedType, DecayedType: p.DecayedType},
		})
	}
	return out, nil
}

func configurationsToYAML(cfgs []store.Configuration) []configurationYAML {
	out := make([]configurationYAML, 0, len(cfgs))
	for _, c := range cfgs {
		entry := configurationYAML{
			ID:          c.ID,
			SetCode:     hex32(c.SetCode),
			GetCode:     hex32(c.GetCode),
			VersionCode: hex32(c.VersionCode),
			Tags:        c.Tags,
		}
		for _, vt := range c.VersionTypes {
			entry.VersionTypes = append(entry.VersionTypes, versionTypeYAML{Version: vt.Version, Type: typeRefToYAML(vt.Type)})
		}
		out = append(out, entry)
	}
	return out
}

func configurationFromYAML(ctx *extractctx.Context, cfg configurationYAML) (store.Configuration, error) {
	setCode, err := parseHex32(cfg.SetCode)
	if err != nil {
		return store.Configuration{}, err
	}
	getCode, err := parseHex32(cfg.GetCode)
	if err != nil {
		return store.Configuration{}, err
	}
	versionCode, err := parseHex32(cfg.VersionCode)
	if err != nil {
		return store.Configuration{}, err
	}
	out := store.Configuration{ID: cfg.ID, SetCode: setCode, GetCode: getCode, VersionCode: versionCode, Tags: cfg.Tags}
	for _, vt := range cfg.VersionTypes {
		t, err := typeRefFromYAML(ctx, vt.Type)
		if err != nil {
			return store.Configuration{}, err
		}
		out.VersionTypes = append(out.VersionTypes, store.TypeRefWithVersion{Version: vt.Version, Type: t})
	}
	return out, nil
}

func errorsToYAML(errs []store.ErrorDescriptor) []errorYAML {
	out := make([]errorYAML, 0, len(errs))
	for _, e := range errs {
		out = append(out, errorYAML{
			ID:          e.ID,
			Value:       e.Value,
			Description: e.Description,
			ServiceText: e.ServiceText,
			UserText:    e.UserText,
			Comment:     e.Comment,
		})
	}
	return out
}

func errorFromYAML(e errorYAML) store.ErrorDescriptor {
	return store.ErrorDescriptor{
		ID:          e.ID,
		Value:       e.Value,
		Description: e.Description,
		ServiceText: e.ServiceText,
		UserText:    e.UserText,
		Comment:     e.Comment,
	}
}

func socketsToYAML(sockets []store.Socket) []socketYAML {
	out := make([]socketYAML, 0, len(sockets))
	for _, s := range sockets {
		out = append(out, socketYAML{ID: s.ID, Port: s.Port, PacketType: typeRefToYAML(s.PacketType), Tags: s.Tags})
	}
	return out
}

func socketFromYAML(ctx *extractctx.Context, s socketYAML) (store.Socket, error) {
	t, err := typeRefFromYAML(ctx, s.PacketType)
	if err != nil {
		return store.Socket{}, err
	}
	return store.Socket{ID: s.ID, Port: s.Port, PacketType: t, Tags: s.Tags}, nil
}

func hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}

func parseHex32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex code %q: %w", s, err)
	}
	return uint32(v), nil
}

// dedupeConfigurations sorts cfgs into the canonical total order over
// their value tuples and drops consecutive duplicates, mirroring the
// std::set<Configuration> the source implementation funnels
// configurations through before writing them out.
func dedupeConfigurations(cfgs []store.Configuration) []store.Configuration {
	sorted := append([]store.Configuration(nil), cfgs...)
	sort.SliceStable(sorted, func(i, j int) bool { return configurationKey(sorted[i]) < configurationKey(sorted[j]) })
	out := sorted[:0:0]
	var lastKey string
	for i, c := range sorted {
		key := configurationKey(c)
		if i > 0 && key == lastKey {
			continue
		}
		out = append(out, c)
		lastKey = key
	}
	return out
}

func configurationKey(c store.Configuration) string {
	var vt []string
	for _, v := range c.VersionTypes {
		id := ""
		if v.Type != nil {
			id = v.Type.FullyQualifiedName
		}
		vt = append(vt, fmt.Sprintf("%d:%s", v.Version, id))
	}
	return strings.Join([]string{
		c.ID,
		hex32(c.SetCode), hex32(c.GetCode), hex32(c.VersionCode),
		strings.Join(c.Tags, ","),
		strings.Join(vt, ","),
	}, "|")
}

// dedupeErrors applies the same canonical-order uniquing to error
// descriptors.
func dedupeErrors(errs []store.ErrorDescriptor) []store.ErrorDescriptor {
	sorted := append([]store.ErrorDescriptor(nil), errs...)
	sort.SliceStable(sorted, func(i, j int) bool { return errorKey(sorted[i]) < errorKey(sorted[j]) })
	out := sorted[:0:0]
	var lastKey string
	for i, e := range sorted {
		key := errorKey(e)
		if i > 0 && key == lastKey {
			continue
		}
		out = append(out, e)
		lastKey = key
	}
	return out
}

func errorKey(e store.ErrorDescriptor) string {
	return strings.Join([]string{e.ID, strconv.FormatInt(e.Value, 10), e.Description, e.ServiceText, e.UserText, e.Comment}, "|")
}

// dedupeSockets applies the same canonical-order uniquing to socket
// declarations.
func dedupeSockets(sockets []store.Socket) []store.Socket {
	sorted := append([]store.Socket(nil), sockets...)
	sort.SliceStable(sorted, func(i, j int) bool { return socketKey(sorted[i]) < socketKey(sorted[j]) })
	out := sorted[:0:0]
	var lastKey string
	for i, s := range sorted {
		key := socketKey(s)
		if i > 0 && key == lastKey {
			continue
		}
		out = append(out, s)
		lastKey = key
	}
	return out
}

func socketKey(s store.Socket) string {
	id := ""
	if s.PacketType != nil {
		id = s.PacketType.FullyQualifiedName
	}
	return strings.Join([]string{s.ID, strconv.Itoa(int(s.Port)), id, strings.Join(s.Tags, ",")}, "|")
}
