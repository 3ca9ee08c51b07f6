// Package main — консольный клиент магазина.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/AlejandroDiBattista/TUP25-P4/internal/catalog"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/client"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/config"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/session"
)

const usage = `uso: tienda [-api URL] [-session ARCHIVO] <comando> [argumentos]

comandos:
  registrar <nombre> <email> <password>
  iniciar-sesion <email> <password>
  cerrar-sesion
  me
  productos [-q texto] [-categoria nombre]
  categorias
  carrito ver
  carrito agregar <producto-id> [cantidad]
  carrito quitar <producto-id>
  carrito mas <producto-id>
  carrito menos <producto-id>
  carrito cantidad <producto-id> <n>
  carrito vaciar
  carrito finalizar <direccion> <tarjeta>
  compras [id]
`

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	// .env опционален, его отсутствие не ошибка.
	_ = godotenv.Load()

	cfg, args, err := config.ParseClient(os.Args[1:])
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	sessionPath := cfg.SessionFile
	if sessionPath == "" {
		sessionPath, err = session.DefaultPath()
		if err != nil {
			sugar.Fatalw("session path error", "error", err.Error())
		}
	}

	store, err := session.New(sessionPath)
	if err != nil {
		sugar.Fatalw("session load error", "error", err.Error())
	}

	c := client.NewClient(cfg.APIURL, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{client: c, sugar: sugar}

	if err := app.run(ctx, args[0], args[1:]); err != nil {
		var apiErr *client.APIError
		switch {
		case errors.As(err, &apiErr):
			fmt.Fprintln(os.Stderr, "error:", apiErr.Message("el servidor rechazó la operación"))
		case errors.Is(err, client.ErrNotAuthenticated):
			fmt.Fprintln(os.Stderr, "error: primero inicie sesión con `tienda iniciar-sesion`")
		case errors.Is(err, client.ErrNoStock):
			fmt.Fprintln(os.Stderr, "error: no hay stock suficiente")
		case errors.Is(err, client.ErrTransport):
			fmt.Fprintln(os.Stderr, "error: no se pudo contactar al servidor:", err)
		case errors.Is(err, errUsage):
			fmt.Fprint(os.Stderr, usage)
		default:
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("bad usage")

type app struct {
	client *client.Client
	sugar  *zap.SugaredLogger
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "registrar":
		return a.register(ctx, args)
	case "iniciar-sesion":
		return a.login(ctx, args)
	case "cerrar-sesion":
		return a.logout(ctx)
	case "me":
		return a.me(ctx)
	case "productos":
		return a.products(ctx, args)
	case "categorias":
		return a.categories(ctx)
	case "carrito":
		return a.cart(ctx, args)
	case "compras":
		return a.purchases(ctx, args)
	default:
		return fmt.Errorf("%w: comando desconocido %q", errUsage, command)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}

	msg, err := a.client.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	fmt.Println(msg)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	if err := a.client.Login(ctx, args[0], args[1]); err != nil {
		return err
	}

	profile := a.client.Session().GetProfile()
	fmt.Printf("Sesión iniciada como %s <%s>\n", profile.Name, profile.Email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}

	fmt.Println("Sesión cerrada")
	return nil
}

func (a *app) me(ctx context.Context) error {
	profile, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s <%s>\n", profile.Name, profile.Email)
	return nil
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("productos", flag.ContinueOnError)
	query := fs.String("q", "", "texto a buscar en nombre, descripción o categoría")
	category := fs.String("categoria", catalog.AllCategories, "categoría exacta o 'todas'")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	products, err := a.client.LoadProducts(ctx)
	if err != nil {
		return err
	}

	filtered := catalog.Filter(products, *query, *category)
	if len(filtered) == 0 {
		fmt.Println("Sin resultados")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tCATEGORÍA\tPRECIO\tSTOCK")
	for _, p := range filtered {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Category, p.Price, p.Stock)
	}
	return w.Flush()
}

func (a *app) categories(ctx context.Context) error {
	products, err := a.client.LoadProducts(ctx)
	if err != nil {
		return err
	}

	fmt.Println(catalog.AllCategories)
	for _, c := range catalog.Categories(products) {
		fmt.Println(c)
	}
	return nil
}

func (a *app) cart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	sync := client.NewCartSynchronizer(a.client, a.sugar)
	if err := sync.Refresh(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "ver":
		return a.printCart(sync.Snapshot())

	case "agregar":
		if len(args) != 2 && len(args) != 3 {
			return errUsage
		}
		productID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errUsage
		}
		qty := 1
		if len(args) == 3 {
			if qty, err = strconv.Atoi(args[2]); err != nil {
				return errUsage
			}
		}

		product, err := a.findProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := sync.Add(ctx, product, qty); err != nil {
			return err
		}

	case "quitar":
		productID, err := parseID(args)
		if err != nil {
			return err
		}
		if err := sync.Remove(ctx, productID); err != nil {
			return err
		}

	case "mas":
		productID, err := parseID(args)
		if err != nil {
			return err
		}
		if err := sync.Increment(ctx, productID); err != nil {
			return err
		}

	case "menos":
		productID, err := parseID(args)
		if err != nil {
			return err
		}
		if err := sync.Decrement(ctx, productID); err != nil {
			return err
		}

	case "cantidad":
		if len(args) != 3 {
			return errUsage
		}
		productID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errUsage
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return errUsage
		}
		if err := sync.SetQuantity(ctx, productID, qty); err != nil {
			return err
		}

	case "vaciar":
		if err := sync.Clear(ctx); err != nil {
			return err
		}

	case "finalizar":
		if len(args) != 3 {
			return errUsage
		}
		result, err := sync.Checkout(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Compra #%d confirmada: subtotal %.2f, IVA %.2f, envío %.2f, total %.2f\n",
			result.PurchaseID, result.Subtotal, result.Tax, result.Shipping, result.Total)
		return nil

	default:
		return fmt.Errorf("%w: subcomando de carrito desconocido %q", errUsage, args[0])
	}

	return a.printCart(sync.Snapshot())
}

func parseID(args []string) (int64, error) {
	if len(args) != 2 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, errUsage
	}
	return id, nil
}

func (a *app) findProduct(ctx context.Context, id int64) (catalog.Product, error) {
	products, err := a.client.LoadProducts(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, fmt.Errorf("producto %d no encontrado", id)
}

func (a *app) printCart(cart *client.Cart) error {
	if cart == nil || len(cart.Lines) == 0 {
		fmt.Println("El carrito está vacío")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tPRECIO\tCANT.\tSUBTOTAL")
	for _, l := range cart.Lines {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%.2f\n", l.ProductID, l.Name, l.UnitPrice, l.Quantity, l.Subtotal)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("Subtotal: %.2f\nIVA: %.2f\nEnvío: %.2f\nTotal: %.2f\n",
		cart.Subtotal, cart.Tax, cart.Shipping, cart.Total)
	return nil
}

func (a *app) purchases(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return errUsage
	}

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errUsage
		}

		detail, err := a.client.GetPurchase(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("Compra #%d del %s\nEnvío a: %s\n", detail.ID, detail.Date, detail.Address)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNOMBRE\tPRECIO\tCANT.\tSUBTOTAL")
		for _, l := range detail.Lines {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%.2f\n", l.ProductID, l.Name, l.UnitPrice, l.Quantity, l.Subtotal)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("Subtotal: %.2f\nEnvío: %.2f\nTotal: %.2f\n", detail.Subtotal, detail.Shipping, detail.Total)
		return nil
	}

	purchases, err := a.client.ListPurchases(ctx)
	if err != nil {
		return err
	}
	if len(purchases) == 0 {
		fmt.Println("Sin compras registradas")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFECHA\tITEMS\tENVÍO\tTOTAL")
	for _, p := range purchases {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.2f\n", p.ID, p.Date, p.ItemCount, p.Shipping, p.Total)
	}
	return w.Flush()
}
