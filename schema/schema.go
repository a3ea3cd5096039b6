package schema

// Annotation is used to attach arbitrary metadata to the schema objects in
// the graph. Generators and data services read annotations by name.
type Annotation interface {
	// Name defines the name of the annotation to be retrieved by the readers.
	Name() string
}

// Merger wraps the single Merge function allows custom annotation to
// provide an implementation for merging 2 or more annotations from the
// same type.
type Merger interface {
	Merge(Annotation) Annotation
}

// CommentAnnotation is a builtin schema annotation for configuring the
// schema's Go doc comment.
type CommentAnnotation struct {
	Text string // Comment text.
}

// Name implements the Annotation interface.
func (*CommentAnnotation) Name() string {
	return "Comment"
}

// Comment is a builtin schema annotation for configuring the schema's Go doc comment.
func Comment(text string) *CommentAnnotation {
	return &CommentAnnotation{Text: text}
}

// MergeAnnotations folds a list of annotations into a map keyed by name,
// merging annotations of the same name when they implement Merger.
func MergeAnnotations(ants ...Annotation) map[string]Annotation {
	if len(ants) == 0 {
		return nil
	}
	merged := make(map[string]Annotation, len(ants))
	for _, ant := range ants {
		if ant == nil {
			continue
		}
		name := ant.Name()
		cur, ok := merged[name]
		if m, isMerger := cur.(Merger); ok && isMerger {
			merged[name] = m.Merge(ant)
			continue
		}
		merged[name] = ant
	}
	return merged
}

var _ Annotation = (*CommentAnnotation)(nil)
