// questions CLI - command line client for the questions-app API
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/OsianJL/questions-app/clients/go/questions"
)

func main() {
	args := os.Args[1:]
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
	if len(args) > 0 && args[0] == "-v" {
		logger = logger.Level(zerolog.DebugLevel)
		args = args[1:]
	}

	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := questions.NewClient(os.Getenv("QUESTIONS_URL"), questions.WithLogger(logger))
	dir := configDir()
	session, err := loadSession(dir)
	exitOnError(err)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		need(rest, 3, "register <email> <password> <confirm-password>")
		exitOnError(questions.ValidateRegistration(rest[0], rest[1], rest[2]))
		resp, err := client.RegisterUser(ctx, rest[0], rest[1])
		exitOnError(err)
		fmt.Println(resp.Message)
		if resp.ConfirmURL != "" {
			fmt.Println(resp.ConfirmURL)
		}

	case "login":
		need(rest, 2, "login <email> <password>")
		exitOnError(questions.ValidateCredentials(rest[0], rest[1]))
		resp, err := client.LoginUser(ctx, rest[0], rest[1])
		exitOnError(err)
		session.SetToken(resp.AccessToken)
		exitOnError(saveSession(dir, rest[0], session))
		fmt.Println("Logged in.")

	case "logout":
		session.Clear()
		exitOnError(removeSession(dir))
		fmt.Println("Logged out.")

	case "whoami":
		resp, err := client.GetProtectedResource(ctx, token(session))
		exitOnError(err)
		printJSON(resp)

	case "confirm":
		need(rest, 1, "confirm <token|link>")
		resp, err := client.ConfirmEmail(ctx, linkToken(rest[0]))
		exitOnError(err)
		fmt.Println(resp.Message)

	case "forgot":
		need(rest, 1, "forgot <email>")
		resp, err := client.RequestPasswordReset(ctx, rest[0])
		exitOnError(err)
		fmt.Println(resp.Message)
		if resp.ResetURL != "" {
			fmt.Println(resp.ResetURL)
		}

	case "reset":
		need(rest, 2, "reset <token|link> <new-password>")
		if len(rest[1]) < questions.MinPasswordLength {
			exitOnError(questions.ErrPasswordTooShort)
		}
		resp, err := client.ResetPassword(ctx, linkToken(rest[0]), rest[1])
		exitOnError(err)
		fmt.Println(resp.Message)

	case "profile":
		runProfile(ctx, client, session, rest)

	case "ask":
		need(rest, 3, "ask <tematica> <idioma> <content>")
		resp, err := client.CreatePublicMessage(ctx, token(session), rest[0], rest[1], rest[2])
		exitOnError(err)
		fmt.Printf("Posted question %d\n", resp.ID)

	case "questions":
		fs := flag.NewFlagSet("questions", flag.ExitOnError)
		tematica := fs.String("tematica", "", "Filter by topic")
		idioma := fs.String("idioma", "", "Filter by language")
		contestado := fs.String("contestado", "", "Filter by answered state (true|false)")
		fs.Parse(rest)

		filter := &questions.MessageFilter{Tematica: *tematica, Idioma: *idioma}
		if *contestado != "" {
			b, err := strconv.ParseBool(*contestado)
			exitOnError(err)
			filter.Contestado = questions.Bool(b)
		}
		msgs, err := client.ListPublicMessages(ctx, token(session), filter)
		exitOnError(err)
		for _, m := range msgs {
			mark := " "
			if m.Contestado {
				mark = "✓"
			}
			fmt.Printf("%s %5d [%s/%s] %s\n", mark, m.ID, m.Tematica, m.Idioma, m.Content)
		}

	case "question":
		need(rest, 1, "question <id>")
		resp, err := client.GetPublicMessageDetail(ctx, token(session), parseID(rest[0]))
		exitOnError(err)
		printJSON(resp)

	case "answer":
		need(rest, 2, "answer <id> <reply>")
		resp, err := client.ReplyToPublicMessage(ctx, token(session), parseID(rest[0]), rest[1])
		exitOnError(err)
		fmt.Printf("Answered question %d\n", resp.ID)

	case "unask":
		need(rest, 1, "unask <id>")
		resp, err := client.DeletePublicMessage(ctx, token(session), parseID(rest[0]))
		exitOnError(err)
		fmt.Println(resp.Message)

	case "chats":
		chats, err := client.ListChats(ctx, token(session))
		exitOnError(err)
		for _, ch := range chats {
			fmt.Printf("  %d  users %d <-> %d  (since %s)\n", ch.ID, ch.User1ID, ch.User2ID, ch.CreatedAt.Format("2006-01-02"))
		}

	case "chat":
		need(rest, 1, "chat <other-user-id>")
		ch, err := client.InitiateChat(ctx, token(session), parseID(rest[0]))
		exitOnError(err)
		fmt.Printf("Chat %d\n", ch.ID)

	case "read":
		need(rest, 1, "read <chat-id>")
		msgs, err := client.GetChatMessages(ctx, token(session), parseID(rest[0]))
		exitOnError(err)
		for _, m := range msgs {
			fmt.Printf("[%s] %d: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04:05"), m.SenderID, m.Content)
		}

	case "send":
		need(rest, 2, "send <chat-id> <content>")
		m, err := client.SendChatMessage(ctx, token(session), parseID(rest[0]), rest[1])
		exitOnError(err)
		fmt.Printf("Sent: %d\n", m.ID)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func runProfile(ctx context.Context, client *questions.Client, session *questions.Session, args []string) {
	need(args, 1, "profile <create|get|update|delete> ...")
	sub, rest := args[0], args[1:]

	switch sub {
	case "create":
		need(rest, 1, "profile create <username> [image-url] [moto]")
		imageURL, moto := "", ""
		if len(rest) > 1 {
			imageURL = rest[1]
		}
		if len(rest) > 2 {
			moto = rest[2]
		}
		p, err := client.CreateProfile(ctx, token(session), rest[0], imageURL, moto)
		exitOnError(err)
		printJSON(p)

	case "get":
		need(rest, 1, "profile get <user-id>")
		p, err := client.GetProfile(ctx, token(session), parseID(rest[0]))
		exitOnError(err)
		printJSON(p)

	case "update":
		need(rest, 1, "profile update <user-id> [-username u] [-image-url i] [-moto m]")
		fs := flag.NewFlagSet("profile update", flag.ExitOnError)
		username := fs.String("username", "", "New username")
		imageURL := fs.String("image-url", "", "New image URL")
		moto := fs.String("moto", "", "New moto")
		fs.Parse(rest[1:])

		// Only flags given on the command line are sent.
		var update questions.ProfileUpdate
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "username":
				update.Username = username
			case "image-url":
				update.ImageURL = imageURL
			case "moto":
				update.Moto = moto
			}
		})
		p, err := client.UpdateProfile(ctx, token(session), parseID(rest[0]), update)
		exitOnError(err)
		printJSON(p)

	case "delete":
		need(rest, 1, "profile delete <user-id>")
		resp, err := client.DeleteProfile(ctx, token(session), parseID(rest[0]))
		exitOnError(err)
		fmt.Println(resp.Message)

	default:
		fmt.Fprintf(os.Stderr, "Unknown profile command: %s\n", sub)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`questions CLI - questions-app API client

Usage: questions [-v] <command> [options]

Account:
  register <email> <password> <confirm>  Create an account
  confirm <token|link>                   Confirm an email address
  login <email> <password>               Log in and remember the token
  logout                                 Forget the saved token
  whoami                                 Call the protected resource
  forgot <email>                         Request a password reset
  reset <token|link> <new-password>      Set a new password

Profile:
  profile create <username> [image] [moto]
  profile get <user-id>
  profile update <user-id> [-username u] [-image-url i] [-moto m]
  profile delete <user-id>

Questions:
  ask <tematica> <idioma> <content>      Post a question
  questions [-tematica t] [-idioma i] [-contestado true|false]
  question <id>                          Show a question
  answer <id> <reply>                    Answer someone else's question
  unask <id>                             Delete your question

Chats:
  chats                                  List your chats
  chat <user-id>                         Open a chat with a user
  read <chat-id>                         Show chat messages
  send <chat-id> <content>               Send a chat message

Environment:
  QUESTIONS_URL      Server URL (default: http://127.0.0.1:5000)
  QUESTIONS_CONFIG   Config directory (default: ~/.questions)
  QUESTIONS_TOKEN    Access token, overrides the saved login`)
}

func need(args []string, n int, usageLine string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "Usage: questions "+usageLine)
		os.Exit(1)
	}
}

func token(s *questions.Session) string {
	if !s.Authenticated() {
		fmt.Fprintln(os.Stderr, "Not logged in. Run: questions login <email> <password>")
		os.Exit(1)
	}
	return s.Token()
}

// linkToken accepts either a bare token or the full link the server returned.
func linkToken(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		exitOnError(fmt.Errorf("invalid id %q", s))
	}
	return id
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	var apiErr *questions.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		fmt.Fprintln(os.Stderr, "Error:", apiErr.Message)
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
