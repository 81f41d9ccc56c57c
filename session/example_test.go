package session_test

import (
	"context"
	"fmt"
	"log"

	"github.com/zero-day-ai/ogm/config"
	_ "github.com/zero-day-ai/ogm/driver/embedded"
	"github.com/zero-day-ai/ogm/entity"
	"github.com/zero-day-ai/ogm/metadata"
	"github.com/zero-day-ai/ogm/session"
)

type Person struct {
	entity.NodeBase
	Name string
}

func (p *Person) Label() string { return "Person" }

func (p *Person) Properties() map[string]any {
	return map[string]any{"name": p.Name}
}

func (p *Person) ApplyProperties(props map[string]any) {
	if v, ok := props["name"].(string); ok {
		p.Name = v
	}
}

// Example demonstrating a save and load round trip against the embedded
// backend.
func ExampleFactory_OpenSession() {
	meta := metadata.NewMetaData("example")
	meta.RegisterNode(metadata.NodeInfo{
		Label: "Person",
		New:   func() entity.Node { return &Person{} },
	})

	conf := config.DefaultConfiguration()
	conf.Database = "example"

	ctx := context.Background()
	factory, err := session.NewFactory(ctx, conf, meta)
	if err != nil {
		log.Fatal(err)
	}
	defer factory.Close(ctx)

	writer := factory.OpenSession()
	alice := &Person{Name: "Alice"}
	if err := writer.Save(ctx, alice); err != nil {
		log.Fatal(err)
	}
	id, _ := alice.GraphID()

	reader := factory.OpenSession()
	loaded, err := reader.Load(ctx, id)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(loaded.(*Person).Name)
	// Output: Alice
}
