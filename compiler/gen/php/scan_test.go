package php

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanDeclarations(t *testing.T) {
	src := `<?php
namespace App\Entity;

use App\Model\{Named, Sluggable as Slugs};
use function strlen;

abstract class Base {}

final class Article extends Base implements \JsonSerializable
{
    use Named, Slugs {
        Slugs::slug insteadof Named;
    }

    private int $a = 1, $b = 2;
    protected static array $cache = ['x' => [1, 2]];

    public function &items(): array { return $this->items; }

    abstract protected function hook(): void;

    public function jsonSerialize(): mixed
    {
        $anon = new class {
            public function hidden() {}
        };
        return ['a' => $this->a, 'cls' => static::class];
    }
}

interface Printable
{
    public function print(): string;
}

trait Helper
{
    public function help() {}
}

enum Status: string
{
    case Draft = 'draft';

    public function label(): string { return 'x'; }
}
`
	f := Scan("Article.php", []byte(src))
	require.Len(t, f.Decls, 5)

	base := f.Decls[0]
	assert.Equal(t, `App\Entity\Base`, base.Name)
	assert.True(t, base.Abstract)

	a := f.Decl(`app\entity\article`)
	require.NotNil(t, a)
	assert.Equal(t, KindClass, a.Kind)
	assert.False(t, a.Abstract)
	assert.Equal(t, `App\Entity\Base`, a.Parent)
	assert.Equal(t, []string{`App\Model\Named`, `App\Model\Sluggable`}, a.Traits)
	assert.Equal(t, []string{"items", "hook", "jsonSerialize"}, a.Methods)

	var props []string
	for _, p := range a.Properties {
		props = append(props, p.Name)
	}
	assert.Equal(t, []string{"a", "b", "cache"}, props)

	assert.Equal(t, KindInterface, f.Decls[2].Kind)
	assert.Equal(t, []string{"print"}, f.Decls[2].Methods)
	assert.Equal(t, KindTrait, f.Decls[3].Kind)
	assert.Equal(t, KindEnum, f.Decls[4].Kind)
	assert.Equal(t, []string{"label"}, f.Decls[4].Methods)
}

func TestScanAnnotations(t *testing.T) {
	src := `<?php
namespace App\Entity;

use Doctrine\ORM\Mapping as ORM;
use Symfony\Component\Validator\Constraints as Assert;

class Post
{
    /**
     * @var string
     * @ORM\Column(type="string")
     * @Assert\NotBlank()
     */
    private $title;

    #[ORM\Column(type: 'text'), Assert\Length(min: 3, groups: ['a', 'b'])]
    #[\Symfony\Component\Validator\Constraints\NotNull]
    private ?string $body;

    private $plain;

    public function __construct(
        #[Assert\NotBlank] private string $slug,
        string $unpromoted,
        protected readonly array $tags = [],
    ) {}
}
`
	f := Scan("Post.php", []byte(src))
	require.Len(t, f.Decls, 1)
	d := f.Decls[0]

	title := d.Property("title")
	require.NotNil(t, title)
	assert.Equal(t, []string{`Doctrine\ORM\Mapping\Column`, `Symfony\Component\Validator\Constraints\NotBlank`}, title.Annotations)

	body := d.Property("body")
	require.NotNil(t, body)
	assert.Equal(t, []string{
		`Doctrine\ORM\Mapping\Column`,
		`Symfony\Component\Validator\Constraints\Length`,
		`Symfony\Component\Validator\Constraints\NotNull`,
	}, body.Annotations)

	assert.Empty(t, d.Property("plain").Annotations)

	slug := d.Property("slug")
	require.NotNil(t, slug)
	assert.Equal(t, []string{`Symfony\Component\Validator\Constraints\NotBlank`}, slug.Annotations)
	assert.NotNil(t, d.Property("tags"))
	assert.Nil(t, d.Property("unpromoted"))
	assert.Equal(t, []string{"__construct"}, d.Methods)
}

func TestScanSkipsLiteralsAndComments(t *testing.T) {
	src := `<html><?php echo "}"; ?>
<?php
namespace App;

// class Fake {}
# class Hash {}
/* class Block {} */
$text = <<<'EOT'
class Heredoc { }
EOT;
$s = 'class Quoted {';

class Real
{
    private $x = "}";

    public function run()
    {
        $y = "{$this->x} }";
        return Real::class;
    }
}
`
	f := Scan("Real.php", []byte(src))
	require.Len(t, f.Decls, 1)
	assert.Equal(t, `App\Real`, f.Decls[0].Name)
	assert.Equal(t, []string{"run"}, f.Decls[0].Methods)
	require.Len(t, f.Decls[0].Properties, 1)
}

func TestScanBracedNamespaces(t *testing.T) {
	src := `<?php
namespace First {
    use Other\Parent_ as P;
    class A extends P {}
}

namespace Second {
    class B extends \First\A {}
    class C extends namespace\B {}
}
`
	f := Scan("multi.php", []byte(src))
	require.Len(t, f.Decls, 3)
	assert.Equal(t, `First\A`, f.Decls[0].Name)
	assert.Equal(t, `Other\Parent_`, f.Decls[0].Parent)
	assert.Equal(t, `Second\B`, f.Decls[1].Name)
	assert.Equal(t, `First\A`, f.Decls[1].Parent)
	assert.Equal(t, `Second\B`, f.Decls[2].Parent)
}

func TestScanRecentSyntax(t *testing.T) {
	src := `<?php
namespace App\Entity;

final readonly class Money
{
    const string CURRENCY = 'EUR';

    public function __construct(public private(set) int $amount) {}
}

class Person
{
    public private(set) string $first = '';

    public string $fullName {
        get => $this->first . ' ' . $this->last;
        set(string $value) {
            [$this->first, $this->last] = explode(' ', $value, 2);
        }
    }

    public function rename(string $to): void {}
}
`
	f := Scan("Money.php", []byte(src))
	require.Len(t, f.Decls, 2)

	money := f.Decl(`App\Entity\Money`)
	require.NotNil(t, money)
	assert.False(t, money.Abstract)
	assert.Equal(t, []string{"__construct"}, money.Methods)
	require.Len(t, money.Properties, 1)
	assert.Equal(t, "amount", money.Properties[0].Name)

	person := f.Decl(`App\Entity\Person`)
	require.NotNil(t, person)
	var props []string
	for _, p := range person.Properties {
		props = append(props, p.Name)
	}
	assert.Equal(t, []string{"first", "fullName"}, props)
	assert.Equal(t, []string{"rename"}, person.Methods)
}

func TestScanWithoutPHPTag(t *testing.T) {
	f := Scan("plain.html", []byte("<p>class Nope {}</p>"))
	assert.Empty(t, f.Decls)
}
