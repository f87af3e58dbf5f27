package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jelka/validator/internal/config"
	"github.com/jelka/validator/internal/observability"
	"github.com/jelka/validator/internal/protocol"
	"github.com/rs/zerolog/log"
)

func main() {
	showPath := flag.String("show", "cmd/jelkaheader/show.toml", "show config path (toml)")
	quote := flag.Bool("quote", false, "print the header as a quoted string literal for pasting into source")
	flag.Parse()

	observability.InitLogger("jelkaheader")

	show, err := config.LoadShowConfig(*showPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load show config")
	}
	line, err := renderHeader(show, *quote)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode header")
	}
	fmt.Fprintln(os.Stdout, line)
}

func renderHeader(show config.ShowConfig, quote bool) (string, error) {
	line, err := protocol.EncodeHeader(show.Header())
	if err != nil {
		return "", err
	}
	if !quote {
		return line[:len(line)-1], nil
	}
	quoted, err := json.Marshal(line)
	if err != nil {
		return "", err
	}
	return string(quoted), nil
}
