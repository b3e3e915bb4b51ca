// Command cartctl keeps a guest cart in a local JSON file and merges it into
// the shopper's server cart on login.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/reconcile"
	"storefront/internal/util"
)

const usage = `usage: cartctl [flags] <command> [args]

commands:
  show                       print the cart
  add <productId> <qty>      add to the cart
  set <productId> <qty>      set a quantity, 0 removes the line
  login <email> <password>   merge the guest cart and print the access token
  checkout                   start a checkout for the server cart

flags:
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command and returns the process exit code.
func run(argv []string) int {
	home, _ := os.UserHomeDir()

	fs := flag.NewFlagSet("cartctl", flag.ExitOnError)
	apiURL := fs.String("api", envOr("STOREFRONT_API", "http://localhost:8080"), "storefront base URL")
	cartPath := fs.String("cart", filepath.Join(home, ".storefront", "guest-cart.json"), "guest cart file")
	token := fs.String("token", os.Getenv("STOREFRONT_TOKEN"), "access token; empty means guest")
	fullName := fs.String("name", "", "checkout: full name")
	line1 := fs.String("line1", "", "checkout: address line 1")
	city := fs.String("city", "", "checkout: city")
	state := fs.String("state", "", "checkout: state")
	zip := fs.String("zip", "", "checkout: zip")
	country := fs.String("country", "", "checkout: country")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(argv)

	if err := util.InitLogger("development"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer util.SyncLogger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	api := client.New(*apiURL)
	rec := reconcile.NewReconciler(reconcile.NewFileLocalStore(*cartPath))

	var remote reconcile.Remote
	if *token != "" {
		remote = api.WithToken(*token)
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return 2
	}

	var err error
	switch args[0] {
	case "show":
		err = printCart(rec.GetCart(ctx, remote))
	case "add", "set":
		if len(args) != 3 {
			fs.Usage()
			return 2
		}
		qty, convErr := strconv.Atoi(args[2])
		if convErr != nil {
			err = fmt.Errorf("quantity: %w", convErr)
			break
		}
		if args[0] == "add" {
			err = printCart(rec.AddItem(ctx, remote, args[1], qty))
		} else {
			err = printCart(rec.UpdateItem(ctx, remote, args[1], qty))
		}
	case "login":
		if len(args) != 3 {
			fs.Usage()
			return 2
		}
		err = login(ctx, api, rec, args[1], args[2], *cartPath)
	case "checkout":
		if *token == "" {
			err = errors.New("checkout requires -token")
			break
		}
		var session *client.CheckoutSession
		session, err = api.WithToken(*token).Checkout(ctx, models.ShippingAddress{
			FullName:     *fullName,
			AddressLine1: *line1,
			City:         *city,
			State:        *state,
			Zip:          *zip,
			Country:      *country,
		})
		if err == nil {
			fmt.Printf("order %s: pay at %s\n", session.OrderID, session.URL)
		}
	default:
		fs.Usage()
		return 2
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "cartctl:", err)
		return 1
	}
	return 0
}

func login(ctx context.Context, api *client.Client, rec *reconcile.Reconciler, email, password, cartPath string) error {
	token, err := api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	guest, err := reconcile.NewFileLocalStore(cartPath).Load(ctx)
	if err != nil {
		return err
	}

	outcome, err := rec.MergeOnLogin(ctx, api.WithToken(token), guest)
	if err != nil {
		return err
	}
	for _, item := range outcome.Failed {
		fmt.Fprintf(os.Stderr, "not merged: %s x%d\n", item.ProductID, item.Quantity)
	}
	if err := printCart(outcome.Cart, nil); err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printCart(cart *models.Cart, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cart)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
