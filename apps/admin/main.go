package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ssriya/grader/apps/container"
	"github.com/ssriya/grader/core"
)

func main() {
	conf := core.NewConfig()

	c, err := container.New(context.Background(), conf, container.Options{LogPrefix: "ADMIN : "})
	if err != nil {
		container.NewLogger(conf, "ADMIN : ").Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
		return
	}

	cli := commandLine{
		db:     c.DB,
		usrSvc: c.UserSvc,
		gbSvc:  c.GradebookSvc,
		out:    os.Stdout,
	}
	err = cli.run(os.Args)
	_ = c.Close()
	if err != nil {
		if err != errHelp {
			c.Logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
