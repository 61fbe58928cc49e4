// tricyctl is the command-line front end for the booking client: log in,
// book and manage rides, and review notifications and payments from a
// terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/tricy-client/internal/auth"
	"github.com/example/tricy-client/internal/booking"
	"github.com/example/tricy-client/internal/config"
	"github.com/example/tricy-client/internal/fare"
	"github.com/example/tricy-client/internal/gateway"
	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/notify"
	"github.com/example/tricy-client/internal/payments"
	"github.com/example/tricy-client/internal/session"
	"github.com/example/tricy-client/internal/signal"
	"github.com/example/tricy-client/internal/wallet"
)

const usage = `usage: tricyctl <command> [flags]

auth:
  login -email -password          log in and persist the session
  register -name -email -password -role [-phone]
  profile [-name] [-phone]        show or update the profile
  logout                          drop the persisted session

passenger:
  estimate -from-lat -from-lng -to-lat -to-lng
  book -pickup -dropoff [coords]  create a booking
  bookings                        ride history
  cancel -id [-yes]               cancel a requested booking

driver:
  requests                        open request queue and own rides
  accept -id                      take a request
  decline -id                     drop a request locally
  complete -id [-yes]             finish the active ride

money:
  notifications                   list notifications
  mark-read -id
  transactions                    payment history and today's total
  confirm-cash -id
  confirm-card -id [-customer]
`

type app struct {
	cfg      config.AgentConfig
	sessions session.Store
	gw       *gateway.Client
	auth     *auth.Service
	bus      *signal.Bus
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg, err := config.LoadAgentConfig()
	if err != nil {
		fatal(err)
	}
	log := logging.NewLoggerTo(os.Stderr, "warn")

	bus := signal.NewBus()
	var sessions session.Store
	if cfg.RedisAddr != "" {
		sessions = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, bus, log)
	} else {
		sessions = session.NewFileStore(cfg.SessionDir, bus, log)
	}
	gw := gateway.New(cfg.APIBaseURL, sessions, log)
	gw.HTTPClient.Timeout = cfg.RequestTimeout

	a := &app{
		cfg:      cfg,
		sessions: sessions,
		gw:       gw,
		auth:     auth.NewService(gw, sessions, log),
		bus:      bus,
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]
	if err := a.run(ctx, cmd, args); err != nil {
		fatal(err)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, args)
	case "register":
		return a.cmdRegister(ctx, args)
	case "profile":
		return a.cmdProfile(ctx, args)
	case "logout":
		return a.auth.Logout()
	case "estimate":
		return a.cmdEstimate(args)
	case "book":
		return a.cmdBook(ctx, args)
	case "bookings":
		return a.cmdBookings(ctx)
	case "cancel":
		return a.cmdCancel(ctx, args)
	case "requests":
		return a.cmdRequests(ctx)
	case "accept":
		return a.cmdAccept(ctx, args)
	case "decline":
		return a.cmdDecline(ctx, args)
	case "complete":
		return a.cmdComplete(ctx, args)
	case "notifications":
		return a.cmdNotifications(ctx)
	case "mark-read":
		return a.cmdMarkRead(ctx, args)
	case "transactions":
		return a.cmdTransactions(ctx)
	case "confirm-cash":
		return a.cmdConfirmCash(ctx, args)
	case "confirm-card":
		return a.cmdConfirmCard(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) session() (*models.Session, error) {
	sess, err := a.sessions.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("not logged in, run: tricyctl login")
	}
	return sess, nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	sess, err := a.auth.Login(ctx, auth.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", sess.User.Name, sess.User.Role)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	phone := fs.String("phone", "", "phone number")
	role := fs.String("role", models.RolePassenger, "passenger or driver")
	fs.Parse(args)

	sess, err := a.auth.Register(ctx, auth.Registration{
		Name: *name, Email: *email, Password: *password, PhoneNumber: *phone, Role: *role,
	})
	if err != nil {
		return err
	}
	fmt.Printf("registered and logged in as %s (%s)\n", sess.User.Name, sess.User.Role)
	return nil
}

func (a *app) cmdProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", "", "new display name")
	phone := fs.String("phone", "", "new phone number")
	fs.Parse(args)

	if *name == "" && *phone == "" {
		sess, err := a.session()
		if err != nil {
			return err
		}
		u := sess.User
		fmt.Printf("%s <%s> role=%s phone=%s\n", u.Name, u.Email, u.Role, u.PhoneNumber)
		return nil
	}
	sess, err := a.auth.UpdateProfile(ctx, auth.ProfileUpdate{Name: *name, PhoneNumber: *phone})
	if err != nil {
		return err
	}
	fmt.Printf("profile updated: %s phone=%s\n", sess.User.Name, sess.User.PhoneNumber)
	return nil
}

func (a *app) cmdEstimate(args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	fromLat := fs.Float64("from-lat", 0, "pickup latitude")
	fromLng := fs.Float64("from-lng", 0, "pickup longitude")
	toLat := fs.Float64("to-lat", 0, "dropoff latitude")
	toLng := fs.Float64("to-lng", 0, "dropoff longitude")
	fs.Parse(args)

	est := fare.NewEstimator(a.cfg.BaseFare, a.cfg.PerKm)
	from := models.Coord{Lat: *fromLat, Lng: *fromLng}
	to := models.Coord{Lat: *toLat, Lng: *toLng}
	q := est.Estimate(from, to)
	fmt.Printf("%.2f km, fare %.2f\n", q.DistanceKm, q.Fare)
	return nil
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	pickup := fs.String("pickup", "", "pickup address")
	dropoff := fs.String("dropoff", "", "dropoff address")
	fromLat := fs.Float64("from-lat", 0, "pickup latitude")
	fromLng := fs.Float64("from-lng", 0, "pickup longitude")
	toLat := fs.Float64("to-lat", 0, "dropoff latitude")
	toLng := fs.Float64("to-lng", 0, "dropoff longitude")
	fs.Parse(args)

	sess, err := a.session()
	if err != nil {
		return err
	}
	screen := booking.NewPassengerScreen(a.gw, a.bus, sess.User.UserID, nil)
	screen.Mount()
	defer screen.Unmount()

	req := models.BookingCreate{
		UserID:          sess.User.UserID,
		PickupLocation:  *pickup,
		DropoffLocation: *dropoff,
	}
	if *fromLat != 0 || *fromLng != 0 || *toLat != 0 || *toLng != 0 {
		req.PickupLat, req.PickupLng = fromLat, fromLng
		req.DropoffLat, req.DropoffLng = toLat, toLng
		est := fare.NewEstimator(a.cfg.BaseFare, a.cfg.PerKm)
		req.Fare = est.Estimate(models.Coord{Lat: *fromLat, Lng: *fromLng}, models.Coord{Lat: *toLat, Lng: *toLng}).Fare
	}

	created, err := screen.Book(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("booked %s (%s -> %s) fare %.2f\n", created.BookingID, created.PickupLocation, created.DropoffLocation, created.Fare)
	return nil
}

func (a *app) cmdBookings(ctx context.Context) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	screen := booking.NewPassengerScreen(a.gw, a.bus, sess.User.UserID, nil)
	screen.Mount()
	defer screen.Unmount()

	bs, err := screen.Load(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPICKUP\tDROPOFF\tFARE\tCREATED")
	for _, b := range bs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n", b.BookingID, b.Status, b.PickupLocation, b.DropoffLocation, b.Fare, b.CreatedAt)
	}
	return w.Flush()
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	id := fs.String("id", "", "booking id")
	yes := fs.Bool("yes", false, "skip confirmation")
	fs.Parse(args)

	sess, err := a.session()
	if err != nil {
		return err
	}
	if !*yes && !confirm(fmt.Sprintf("cancel booking %s?", *id)) {
		return nil
	}
	screen := booking.NewPassengerScreen(a.gw, a.bus, sess.User.UserID, nil)
	screen.Mount()
	defer screen.Unmount()
	if _, err := screen.Load(ctx); err != nil {
		return err
	}
	if err := screen.Cancel(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("cancelled %s\n", *id)
	return nil
}

func (a *app) driverScreen(ctx context.Context) (*booking.DriverScreen, func(), error) {
	sess, err := a.session()
	if err != nil {
		return nil, nil, err
	}
	if sess.User.Role != models.RoleDriver {
		return nil, nil, fmt.Errorf("driver commands need a driver session")
	}
	screen := booking.NewDriverScreen(a.gw, a.bus, sess.User.ActorID(), nil)
	screen.Mount()
	if _, err := screen.Load(ctx); err != nil {
		screen.Unmount()
		return nil, nil, err
	}
	return screen, screen.Unmount, nil
}

func (a *app) cmdRequests(ctx context.Context) error {
	screen, done, err := a.driverScreen(ctx)
	if err != nil {
		return err
	}
	defer done()

	v := screen.View()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	printGroup := func(title string, bs []models.Booking) {
		fmt.Fprintf(w, "%s\n", title)
		for _, b := range bs {
			fmt.Fprintf(w, "  %s\t%s\t%s -> %s\t%.2f\n", b.BookingID, b.Status, b.PickupLocation, b.DropoffLocation, b.Fare)
		}
	}
	printGroup("REQUESTED", v.Requested)
	printGroup("ACTIVE", v.Active)
	printGroup("COMPLETED", v.Completed)
	return w.Flush()
}

func (a *app) cmdAccept(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("accept", flag.ExitOnError)
	id := fs.String("id", "", "booking id")
	fs.Parse(args)

	screen, done, err := a.driverScreen(ctx)
	if err != nil {
		return err
	}
	defer done()

	b, err := screen.Accept(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("accepted %s (%s -> %s)\n", b.BookingID, b.PickupLocation, b.DropoffLocation)
	return nil
}

func (a *app) cmdDecline(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decline", flag.ExitOnError)
	id := fs.String("id", "", "booking id")
	fs.Parse(args)

	screen, done, err := a.driverScreen(ctx)
	if err != nil {
		return err
	}
	defer done()
	screen.Decline(*id)
	fmt.Printf("declined %s locally\n", *id)
	return nil
}

func (a *app) cmdComplete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	id := fs.String("id", "", "booking id")
	yes := fs.Bool("yes", false, "skip confirmation")
	fs.Parse(args)

	if !*yes && !confirm(fmt.Sprintf("complete ride %s?", *id)) {
		return nil
	}
	screen, done, err := a.driverScreen(ctx)
	if err != nil {
		return err
	}
	defer done()

	b, err := screen.Complete(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("completed %s\n", b.BookingID)
	return nil
}

func (a *app) cmdNotifications(ctx context.Context) error {
	sess, err := a.session()
	if err != nil {
		return err
	}
	screen := notify.NewScreen(a.gw, a.bus, sess.User.UserID, nil)
	screen.Mount()
	defer screen.Unmount()

	feed, err := screen.Load(ctx)
	if err != nil {
		return err
	}
	for _, n := range feed {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Printf("%s %s  %s: %s\n", marker, n.NotificationID, n.Title, n.Message)
	}
	fmt.Printf("%d unread\n", screen.Unread())
	return nil
}

func (a *app) cmdMarkRead(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mark-read", flag.ExitOnError)
	id := fs.String("id", "", "notification id")
	fs.Parse(args)

	sess, err := a.session()
	if err != nil {
		return err
	}
	screen := notify.NewScreen(a.gw, a.bus, sess.User.UserID, nil)
	screen.Mount()
	defer screen.Unmount()
	if _, err := screen.Load(ctx); err != nil {
		return err
	}
	return screen.MarkRead(ctx, *id)
}

func (a *app) walletScreen(ctx context.Context) (*wallet.Screen, func(), error) {
	sess, err := a.session()
	if err != nil {
		return nil, nil, err
	}
	screen := wallet.NewScreen(a.gw, a.bus, sess.User.UserID, nil)
	if a.cfg.StripeAPIKey != "" {
		screen.WithProcessor(payments.NewStripeClient(a.cfg.StripeAPIKey))
	}
	screen.Mount()
	if _, err := screen.Load(ctx); err != nil {
		screen.Unmount()
		return nil, nil, err
	}
	return screen, screen.Unmount, nil
}

func (a *app) cmdTransactions(ctx context.Context) error {
	screen, done, err := a.walletScreen(ctx)
	if err != nil {
		return err
	}
	defer done()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBOOKING\tMODE\tSTATUS\tAMOUNT\tCREATED")
	for _, t := range screen.Transactions() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n", t.TransactionID, t.BookingID, t.PaymentMode, t.PaymentStatus, t.Amount, t.CreatedAt)
	}
	w.Flush()
	fmt.Printf("settled today: %.2f\n", screen.TodayTotal(time.Now()))
	return nil
}

func (a *app) cmdConfirmCash(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("confirm-cash", flag.ExitOnError)
	id := fs.String("id", "", "transaction id")
	fs.Parse(args)

	screen, done, err := a.walletScreen(ctx)
	if err != nil {
		return err
	}
	defer done()
	if err := screen.ConfirmCash(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("confirmed %s\n", *id)
	return nil
}

func (a *app) cmdConfirmCard(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("confirm-card", flag.ExitOnError)
	id := fs.String("id", "", "transaction id")
	customer := fs.String("customer", "", "stripe customer id")
	fs.Parse(args)

	screen, done, err := a.walletScreen(ctx)
	if err != nil {
		return err
	}
	defer done()
	if err := screen.ConfirmCard(ctx, *id, *customer); err != nil {
		return err
	}
	fmt.Printf("confirmed %s\n", *id)
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "tricyctl: %v\n", err)
	os.Exit(1)
}
