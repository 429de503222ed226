package habits

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
)

type CategoryCmd struct {
	List CategoryListCmd `cmd:"" help:"List habit categories." default:"1"`
}

type CategoryListCmd struct{}

func (c *CategoryListCmd) Run(ctx *cli.Context) error {
	categories, err := ctx.Service.ListCategories(context.Background())
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	if len(categories) == 0 {
		fmt.Fprintln(out, "No categories found.")
		return nil
	}
	for _, c := range categories {
		fmt.Fprintf(out, "%s  %s\n", c.ID, c.DisplayName)
	}
	return nil
}
