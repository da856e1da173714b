package gen

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/traitgen/schema"
	"github.com/syssam/traitgen/schema/constraint"
	"github.com/syssam/traitgen/schema/edge"
	"github.com/syssam/traitgen/schema/field"
)

const postClass = `Blog\Entity\Post`

func postSchema() *schema.Class {
	return &schema.Class{
		Name: postClass,
		Fields: []*field.Descriptor{
			{Name: "id", Type: field.TypeInteger, Identifier: true},
			{Name: "title", Type: field.TypeString},
		},
		Associations: []*edge.Descriptor{
			{Name: "tags", Kind: edge.M2M, Target: `Blog\Entity\Tag`, Owning: true, Inverse: "posts"},
		},
	}
}

func postConstraints() constraint.Static {
	c := constraint.Static{}
	c.Add(postClass, "title", constraint.NotBlank)
	return c
}

func newPostGenerator(t *testing.T, opts ...Option) (*Generator, *testDialect, *Reflection) {
	t.Helper()
	d := newTestDialect()
	refl := d.class(t.TempDir(), postClass, []string{"id", "title", "tags"})
	opts = append([]Option{WithConstraints(postConstraints())}, opts...)
	g, err := NewGenerator(&testProvider{classes: []*schema.Class{postSchema()}}, d, opts...)
	require.NoError(t, err)
	return g, d, refl
}

func TestGeneratePostScenario(t *testing.T) {
	g, _, _ := newPostGenerator(t)

	art, err := g.Build(postSchema())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"getId", "setId",
		"getTitle", "setTitle",
		"getTags", "addTag", "removeTag",
		"doctrineConstruct", "__construct",
	}, art.Methods())

	text := string(art.Bytes())
	assert.Contains(t, text, "getId ?int\n")
	assert.Contains(t, text, "getTitle string\n")
	assert.Contains(t, text, "setTitle string\n")
	assert.Contains(t, text, "getTags Collection\n")
	assert.Contains(t, text, "addTag Tag\n")
	assert.Contains(t, text, "removeTag Tag\n")
	assert.Contains(t, text, "doctrineConstruct [tags] parent=false\n")
	assert.True(t, strings.HasPrefix(text, "open Blog\\Entity PostTrait\n\ngetId ?int"))
	assert.True(t, strings.HasSuffix(text, "__construct\nclose\n"))
}

func TestGenerateIdentifierNullability(t *testing.T) {
	nullable := postConstraints()
	nullable.Add(postClass, "id", constraint.NotNull)
	g, _, _ := newPostGenerator(t, WithConstraints(nullable))

	art, err := g.Build(postSchema())
	require.NoError(t, err)
	text := string(art.Bytes())

	assert.Contains(t, text, "getId ?int\n", "identifier getter is optional even when constrained")
	assert.Contains(t, text, "setId int\n")
}

func TestGenerateLenientPromotion(t *testing.T) {
	g, _, _ := newPostGenerator(t, WithConstraints(nil))

	art, err := g.Build(postSchema())
	require.NoError(t, err)
	text := string(art.Bytes())

	assert.Contains(t, text, "getTitle ?string\n")
	assert.Contains(t, text, "setTitle ?string\n")
}

func TestGenerateStrictPolicy(t *testing.T) {
	t.Run("constrained non-null field conflicts", func(t *testing.T) {
		g, _, _ := newPostGenerator(t, WithPolicy(PolicyStrict))

		_, err := g.Build(postSchema())
		require.Error(t, err)
		assert.True(t, IsNullabilityError(err))
		assert.True(t, errors.Is(err, ErrNullabilityConflict))

		var ce *ClassError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, PhaseFields, ce.Phase)
		assert.Contains(t, err.Error(), "title")
		assert.Contains(t, err.Error(), postClass)
	})

	t.Run("unconstrained non-null field stays required", func(t *testing.T) {
		g, _, _ := newPostGenerator(t, WithPolicy(PolicyStrict), WithConstraints(nil))

		art, err := g.Build(postSchema())
		require.NoError(t, err)
		text := string(art.Bytes())
		assert.Contains(t, text, "getId ?int\n")
		assert.Contains(t, text, "setId int\n")
		assert.Contains(t, text, "getTitle string\n")
	})

	t.Run("conflict is not raised for existing accessors", func(t *testing.T) {
		g, d, _ := newPostGenerator(t, WithPolicy(PolicyStrict))
		d.sources[postClass].Methods = NewMethodSet(true, "getTitle", "setTitle")

		_, err := g.Build(postSchema())
		require.NoError(t, err)
	})
}

func TestGenerateNonDestructive(t *testing.T) {
	t.Run("methods on the class are not redeclared", func(t *testing.T) {
		g, d, _ := newPostGenerator(t)
		d.sources[postClass].Methods = NewMethodSet(true, "GETTITLE", "addTag", "doctrineConstruct")

		art, err := g.Build(postSchema())
		require.NoError(t, err)

		methods := art.Methods()
		assert.NotContains(t, methods, "getTitle")
		assert.NotContains(t, methods, "addTag")
		assert.NotContains(t, methods, "doctrineConstruct")
		assert.Contains(t, methods, "setTitle")
		assert.Contains(t, methods, "__construct")
		assert.ElementsMatch(t, []string{"getTitle", "addTag", "doctrineConstruct"}, art.Skipped)
	})

	t.Run("methods of the previous companion are regenerated", func(t *testing.T) {
		g, d, refl := newPostGenerator(t)
		refl.Methods = NewMethodSet(true, "getTitle", "setTitle")
		d.companions[g.ArtifactPath(refl.SourcePath)] = NewMethodSet(true, "getTitle")

		art, err := g.Build(postSchema())
		require.NoError(t, err)
		assert.Contains(t, art.Methods(), "getTitle")
		assert.NotContains(t, art.Methods(), "setTitle")
	})
}

func TestGenerateRelationshipOrdering(t *testing.T) {
	t.Run("get before add before remove", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)
		art, err := g.Build(postSchema())
		require.NoError(t, err)

		text := string(art.Bytes())
		get := strings.Index(text, "getTags")
		add := strings.Index(text, "addTag")
		remove := strings.Index(text, "removeTag")
		assert.True(t, get < add && add < remove)
	})

	t.Run("existing adder leaves get and remove", func(t *testing.T) {
		g, d, _ := newPostGenerator(t)
		d.sources[postClass].Methods = NewMethodSet(true, "addTag")
		art, err := g.Build(postSchema())
		require.NoError(t, err)

		var tags []string
		for _, m := range art.Methods() {
			if strings.HasSuffix(m, "Tag") || strings.HasSuffix(m, "Tags") {
				tags = append(tags, m)
			}
		}
		assert.Equal(t, []string{"getTags", "removeTag"}, tags)
	})
}

func TestGenerateSingularization(t *testing.T) {
	tests := []struct {
		field       string
		add, remove string
	}{
		{"items", "addItem", "removeItem"},
		{"s", "add", "remove"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			d := newTestDialect()
			d.class(t.TempDir(), `Shop\Order`, []string{tt.field})
			class := &schema.Class{
				Name:         `Shop\Order`,
				Associations: []*edge.Descriptor{{Name: tt.field, Kind: edge.O2M, Target: `Shop\Item`, Inverse: "order"}},
			}
			g, err := NewGenerator(&testProvider{}, d)
			require.NoError(t, err)

			art, err := g.Build(class)
			require.NoError(t, err)
			assert.Equal(t, []string{"get" + Ucfirst(tt.field), tt.add, tt.remove, "doctrineConstruct", "__construct"}, art.Methods())
		})
	}
}

func TestGenerateSingularRelationNullability(t *testing.T) {
	tests := []struct {
		name        string
		join        *bool
		constrained bool
		expected    string
	}{
		{"absent join column is nullable", nil, false, "getAuthor ?Author\n"},
		{"nullable join column", edge.Nullable(true), false, "getAuthor ?Author\n"},
		{"non-null join column", edge.Nullable(false), false, "getAuthor Author\n"},
		{"non-null constrained join column", edge.Nullable(false), true, "getAuthor ?Author\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDialect()
			d.class(t.TempDir(), postClass, []string{"author"})
			cs := constraint.Static{}
			if tt.constrained {
				cs.Add(postClass, "author", constraint.NotNull)
			}
			class := &schema.Class{
				Name:         postClass,
				Associations: []*edge.Descriptor{{Name: "author", Kind: edge.M2O, Target: `Blog\Entity\Author`, Owning: true, JoinNullable: tt.join}},
			}
			for _, policy := range []Policy{PolicyLenient, PolicyStrict} {
				g, err := NewGenerator(&testProvider{}, d, WithConstraints(cs), WithPolicy(policy))
				require.NoError(t, err)

				art, err := g.Build(class)
				require.NoError(t, err)
				assert.Contains(t, string(art.Bytes()), tt.expected, policy.String())
			}
		})
	}
}

func TestGenerateSkipsInheritedProperties(t *testing.T) {
	g, d, _ := newPostGenerator(t)
	d.sources[postClass].Properties = map[string]bool{"title": true}

	art, err := g.Build(postSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"getTitle", "setTitle", "doctrineConstruct", "__construct"}, art.Methods())
	assert.Contains(t, string(art.Bytes()), "doctrineConstruct [] parent=false")
}

func TestGenerateConstructors(t *testing.T) {
	t.Run("own constructor is kept", func(t *testing.T) {
		g, d, _ := newPostGenerator(t)
		d.sources[postClass].OwnMethods = NewMethodSet(true, "__construct")

		art, err := g.Build(postSchema())
		require.NoError(t, err)
		assert.NotContains(t, art.Methods(), "__construct")
		assert.Contains(t, art.Methods(), "doctrineConstruct")
	})

	t.Run("inherited constructor still gets a delegating one", func(t *testing.T) {
		g, d, _ := newPostGenerator(t)
		d.sources[postClass].Methods = NewMethodSet(true, "__construct")
		d.sources[postClass].HasParent = true

		art, err := g.Build(postSchema())
		require.NoError(t, err)
		assert.Contains(t, art.Methods(), "__construct")
		assert.Contains(t, string(art.Bytes()), "parent=true")
	})
}

func TestGenerateWrapperInvariance(t *testing.T) {
	d := newTestDialect()
	refl := d.class(t.TempDir(), `Blog\Entity\Empty`, nil, "doctrineConstruct", "__construct")
	g, err := NewGenerator(&testProvider{}, d, WithPathSegment("Generated"))
	require.NoError(t, err)

	art, err := g.Build(&schema.Class{Name: `Blog\Entity\Empty`})
	require.NoError(t, err)
	assert.Empty(t, art.Methods())
	assert.Equal(t, "open Blog\\Entity\\Generated EmptyTrait\nclose\n", string(art.Bytes()))
	assert.Equal(t, ArtifactPath(refl.SourcePath, "Generated", "Trait"), art.Path)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("missing type is a resolution error", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)
		class := postSchema()
		class.Fields[1].Type = field.TypeInvalid

		_, err := g.Build(class)
		require.Error(t, err)
		assert.True(t, IsResolutionError(err))
		assert.True(t, errors.Is(err, ErrResolution))
		assert.Contains(t, err.Error(), "title")
	})

	t.Run("unknown type is untyped", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)
		class := postSchema()
		class.Fields[1].Type = field.TypeUnknown

		art, err := g.Build(class)
		require.NoError(t, err)
		assert.Contains(t, string(art.Bytes()), "getTitle \n")
	})

	t.Run("unsupported relationship kind", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)
		class := postSchema()
		class.Associations[0].Kind = edge.Unk

		_, err := g.Build(class)
		require.Error(t, err)
		assert.True(t, IsRelationshipError(err))
		assert.True(t, errors.Is(err, ErrUnsupportedRelationship))

		var ce *ClassError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, PhaseAssociations, ce.Phase)
	})

	t.Run("render failure aborts the class", func(t *testing.T) {
		g, d, _ := newPostGenerator(t)
		d.failOn = TemplateBottom

		art, err := g.Build(postSchema())
		require.Error(t, err)
		assert.Nil(t, art)
		assert.Contains(t, err.Error(), "footer")
	})

	t.Run("class without source", func(t *testing.T) {
		g, d, _ := newPostGenerator(t)
		delete(d.sources, postClass)

		_, err := g.Build(postSchema())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrClassNotFound))
	})
}

func TestGenerateRun(t *testing.T) {
	ctx := context.Background()

	t.Run("writes and is idempotent", func(t *testing.T) {
		g, _, refl := newPostGenerator(t)

		report, err := g.Generate(ctx, "Blog/Entity/Post")
		require.NoError(t, err)
		require.Len(t, report.Results, 1)
		assert.Equal(t, StatusWritten, report.Results[0].Status)
		path := g.ArtifactPath(refl.SourcePath)
		first, err := os.ReadFile(path)
		require.NoError(t, err)

		report, err = g.Generate(ctx, postClass)
		require.NoError(t, err)
		assert.Equal(t, StatusUnchanged, report.Results[0].Status)
		second, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("alias form", func(t *testing.T) {
		g, _, _ := newPostGenerator(t, WithAliases(map[string]string{"Blog": `Blog/Entity`}))

		report, err := g.Generate(ctx, "Blog:Post")
		require.NoError(t, err)
		assert.Equal(t, postClass, report.Name)
		assert.Equal(t, 1, report.Count(StatusWritten))
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		g, _, refl := newPostGenerator(t, WithDryRun(true))

		report, err := g.Generate(ctx, postClass)
		require.NoError(t, err)
		assert.Equal(t, StatusPlanned, report.Results[0].Status)
		assert.Contains(t, string(report.Results[0].Source), "getTitle string")
		assert.NoFileExists(t, g.ArtifactPath(refl.SourcePath))
	})

	t.Run("check mode reports stale artifacts", func(t *testing.T) {
		g, _, refl := newPostGenerator(t, WithCheck(true))

		report, err := g.Generate(ctx, postClass)
		require.NoError(t, err)
		assert.Equal(t, StatusStale, report.Results[0].Status)
		assert.NoFileExists(t, g.ArtifactPath(refl.SourcePath))
	})

	t.Run("namespace run continues after a failing class", func(t *testing.T) {
		d := newTestDialect()
		dir := t.TempDir()
		d.class(dir, `Blog\Entity\Broken`, []string{"x"})
		tag := d.class(dir, `Blog\Entity\Tag`, []string{"name"})
		provider := &testProvider{classes: []*schema.Class{
			{Name: `Blog\Entity\Broken`, Associations: []*edge.Descriptor{{Name: "x", Kind: edge.Rel(42)}}},
			{Name: `Blog\Entity\Tag`, Fields: []*field.Descriptor{{Name: "name", Type: field.TypeString, Nullable: true}}},
		}}
		g, err := NewGenerator(provider, d)
		require.NoError(t, err)

		report, err := g.Generate(ctx, `Blog\Entity`)
		require.NoError(t, err)
		require.Len(t, report.Results, 2)
		assert.True(t, IsRelationshipError(report.Results[0].Err))
		assert.Equal(t, StatusWritten, report.Results[1].Status)
		assert.FileExists(t, g.ArtifactPath(tag.SourcePath))
		assert.NoFileExists(t, g.ArtifactPath(d.sources[`Blog\Entity\Broken`].SourcePath))
		assert.Error(t, report.Err())
	})

	t.Run("namespace run lists unmapped classes", func(t *testing.T) {
		d := newTestDialect()
		dir := t.TempDir()
		d.class(dir, `Blog\Entity\Tag`, []string{"name"})
		d.class(dir, `Blog\Entity\Draft`, nil)
		provider := &testProvider{classes: []*schema.Class{
			{Name: `Blog\Entity\Tag`, Fields: []*field.Descriptor{{Name: "name", Type: field.TypeString, Nullable: true}}},
		}}
		g, err := NewGenerator(provider, locatorDialect{d})
		require.NoError(t, err)

		report, err := g.Generate(ctx, `Blog\Entity`)
		require.NoError(t, err)
		assert.Equal(t, []string{`Blog\Entity\Draft`}, report.Unmapped)
	})

	t.Run("single class failure is returned", func(t *testing.T) {
		g, _, _ := newPostGenerator(t, WithPolicy(PolicyStrict))

		report, err := g.Generate(ctx, postClass)
		require.Error(t, err)
		assert.True(t, IsNullabilityError(err))
		require.NotNil(t, report)
		assert.Len(t, report.Results, 1)
	})

	t.Run("class name is matched regardless of case", func(t *testing.T) {
		g, _, _ := newPostGenerator(t, WithPolicy(PolicyStrict))

		report, err := g.Generate(ctx, "blog/entity/post")
		require.Error(t, err)
		assert.True(t, IsNullabilityError(err))
		require.NotNil(t, report)
		assert.True(t, report.Single)
		assert.Equal(t, postClass, report.Name)
		assert.Empty(t, report.Unmapped)
	})

	t.Run("namespace run is not single", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)

		report, err := g.Generate(ctx, "Blog/Entity")
		require.NoError(t, err)
		assert.False(t, report.Single)
		assert.Equal(t, `Blog\Entity`, report.Name)
	})

	t.Run("unknown name is metadata not found", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)

		_, err := g.Generate(ctx, `Shop\Entity`)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.False(t, IsNotAnEntity(err))
	})

	t.Run("unmapped existing class is not an entity", func(t *testing.T) {
		g, d, _ := newPostGenerator(t)
		d.class(t.TempDir(), `Blog\Service\Mailer`, nil)

		_, err := g.Generate(ctx, `Blog\Service\Mailer`)
		require.Error(t, err)
		assert.True(t, IsNotAnEntity(err))
		assert.Contains(t, err.Error(), "is it mapped as an entity")
	})

	t.Run("provider errors are returned", func(t *testing.T) {
		g, err := NewGenerator(&testProvider{err: errProvider}, newTestDialect())
		require.NoError(t, err)

		_, err = g.Generate(ctx, postClass)
		assert.ErrorIs(t, err, errProvider)
	})

	t.Run("unknown alias", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)

		_, err := g.Generate(ctx, "Shop:Order")
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})
}

func TestNewGenerator(t *testing.T) {
	t.Run("requires a provider and a dialect", func(t *testing.T) {
		_, err := NewGenerator(nil, newTestDialect())
		assert.True(t, IsConfigError(err))
		_, err = NewGenerator(&testProvider{}, nil)
		assert.True(t, IsConfigError(err))
	})

	t.Run("defaults the suffix from the dialect", func(t *testing.T) {
		g, err := NewGenerator(&testProvider{}, newTestDialect())
		require.NoError(t, err)
		assert.Equal(t, "Trait", g.Config().FileSuffix)
		assert.Equal(t, DefaultPerm, g.Config().Perm)
	})

	t.Run("resolve exposes getter resolution", func(t *testing.T) {
		g, _, _ := newPostGenerator(t)
		res, err := g.Resolve(postClass, postSchema().Fields[0])
		require.NoError(t, err)
		assert.Equal(t, Resolution{Type: Int, Optional: true}, res)
	})
}
