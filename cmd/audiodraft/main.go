// Audiodraft server exposes the voice email assistant over Model Context
// Protocol: inbox listing, email retrieval and the terminal action protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/people/v1"

	"github.com/amoyroud/audiodraft/internal/action"
	"github.com/amoyroud/audiodraft/internal/auth"
	"github.com/amoyroud/audiodraft/internal/enhance"
	"github.com/amoyroud/audiodraft/internal/gservice"
	"github.com/amoyroud/audiodraft/internal/settings"
	"github.com/amoyroud/audiodraft/internal/tool"
)

func main() {
	httpAddr := flag.String("http-addr", "localhost:0", "HTTP server listen addr")
	oauthTokenFile := flag.String("oauth-token-file", "./data/audiodraft-token.json", "Path to cache google oauth token, empty to avoid storing")
	settingsFile := flag.String("settings-file", "./data/audiodraft-settings.json", "Path to the assistant settings file")
	oauthURLParam := flag.String("oauth-url", "", "OAuth URL")
	envFileParam := flag.String("env-file", "", "Path to env file")
	enableStdio := flag.Bool("stdio", false, "Enable stdio transport for MCP (disables stdout logging)")
	logFile := flag.String("log-file", "", "Path to log file (only used with stdio transport, otherwise logs to stdout)")

	flag.Parse()

	closeLogs := setupLogger(*enableStdio, *logFile)
	defer closeLogs()

	ln := mustListen(*httpAddr)
	config := mustCreateOauthCfg(ln.Addr().String(), *envFileParam, *oauthURLParam)

	tok, err := auth.NewToken(config, *oauthTokenFile)
	if err != nil {
		panic(fmt.Errorf("auth.NewToken failed: %w", err))
	}

	defer func() {
		log.Info().Msg("persisting token if exists")
		if err := tok.Persist(); err != nil {
			log.Error().Err(err).Msg("tok.Persist failed")
		}
	}()

	store, err := settings.NewFileStore(*settingsFile)
	if err != nil {
		panic(fmt.Errorf("settings.NewFileStore failed: %w", err))
	}

	groqKey := os.Getenv("GROQ_API_KEY")
	if groqKey == "" {
		panic("Env variable GROQ_API_KEY must be set")
	}

	gmailSvc := gservice.NewGmail(config, tok)
	enhancer := enhance.NewPipeline(enhance.NewGroqChat(groqKey), store)
	dispatcher := action.NewDispatcher(gmailSvc, enhancer, store)

	srv := tool.NewServer(gmailSvc, dispatcher)

	mux := http.NewServeMux()
	mux.Handle("/oauth", auth.NewHTTPHandler(tok))
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server { return srv }, nil))

	httpSrv := &http.Server{
		Handler: mux,
	}

	shutdown := make(chan os.Signal, 1)

	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	if _, err := tok.OAuthToken(); errors.Is(err, auth.ErrTokenNotSet) {
		openBrowser(config.RedirectURL)
	}

	stopHTTP, errHTTPCh := serveHTTP(httpSrv, ln)
	defer stopHTTP()

	var errStdioCh <-chan error
	if *enableStdio {
		var stopStdio func()
		stopStdio, errStdioCh = serveStdio(srv)
		defer stopStdio()
	}

	select {
	case err := <-errHTTPCh:
		log.Error().Err(err).Msg("http server failed")
	case err := <-errStdioCh:
		log.Error().Err(err).Msg("stdio transport failed")
	case <-shutdown:
		log.Info().Msg("shutdown signal received")
	}
}

func serveStdio(srv *mcp.Server) (func(), <-chan error) {
	errStdioCh := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(errStdioCh)
		log.Info().Msg("starting stdio transport")

		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			errStdioCh <- fmt.Errorf("srv.Run failed: %w", err)
		}
	}()

	return func() {
		cancel()

		<-errStdioCh
		log.Info().Msg("stdio transport stopped")
	}, errStdioCh
}

func serveHTTP(srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		log.Info().Str("addr", ln.Addr().String()).Msg("starting http server")

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("srv.Serve failed: %w", err)
			log.Error().Err(err).Msg("http serve failed")
			errHTTPCh <- err
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("srv.Shutdown failed")
		}

		<-errHTTPCh
		log.Info().Msg("http server stopped")
	}, errHTTPCh
}

func mustListen(httpAddr string) net.Listener {
	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		panic(fmt.Errorf("net.Listen failed: %w", err))
	}

	return ln
}

func mustCreateOauthCfg(lnAddr, envFileParam, oauthURLParam string) *oauth2.Config {
	if envFileParam != "" {
		if err := godotenv.Load(envFileParam); err != nil {
			panic(fmt.Errorf("godotenv.Load failed: %w", err))
		}
	}

	oauthClientID := os.Getenv("OAUTH_GOOGLE_CLIENT_ID")
	oauthClientSec := os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET")

	if oauthClientID == "" || oauthClientSec == "" {
		panic("Env variables OAUTH_GOOGLE_CLIENT_ID and OAUTH_GOOGLE_CLIENT_SECRET must be set")
	}

	oauthURL := fmt.Sprintf("http://%s/oauth", lnAddr)
	if oauthURLParam != "" {
		oauthURL = oauthURLParam
	}

	return &oauth2.Config{
		ClientID:     oauthClientID,
		ClientSecret: oauthClientSec,
		RedirectURL:  oauthURL,
		Scopes: []string{
			gmail.GmailModifyScope,
			people.ContactsReadonlyScope,
			people.DirectoryReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

func setupLogger(enableStdio bool, logFile string) func() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()

		return func() { _ = f.Close() }
	}

	if enableStdio {
		log.Logger = zerolog.New(io.Discard)
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return func() {}
}

func openBrowser(url string) {
	url = fmt.Sprintf("%s?redirect=1", url)
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("could not open browser automatically, please open the link manually")
	}
}
