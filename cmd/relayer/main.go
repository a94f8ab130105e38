package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/invisibledrop/internal/buildinfo"
	"github.com/dmitrijs2005/invisibledrop/internal/flagx"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/config"
)

func main() {

	cfg := config.LoadConfig()

	if client := issueFlag(); client != "" {
		tok, err := relayer.IssueToken(cfg, client)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(tok)
		return
	}

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	app, err := relayer.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}

// issueFlag returns the client name given with -issue.
func issueFlag() string {
	var client string
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.StringVar(&client, "issue", "", "print an access token for the named client and exit")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-issue"})); err != nil {
		log.Fatalf("%v", err)
	}
	return client
}
