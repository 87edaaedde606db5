package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	authService "github.com/dumeirei/hotel-reservation-backend/internal/service/auth"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(cmd.Context(), a.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration completed")
			return nil
		},
	}
}

// 演示数据
var (
	seedCategories = []hotelService.CreateCategoryRequest{
		{Name: "Standard", BasePrice: 200, MaxOccupancy: 2, Description: "标准间"},
		{Name: "Deluxe", BasePrice: 350, MaxOccupancy: 3, Description: "豪华间"},
		{Name: "Suite", BasePrice: 600, MaxOccupancy: 4, Description: "套房"},
	}
	seedRooms = map[string][]string{
		"Standard": {"101", "102", "103", "104"},
		"Deluxe":   {"201", "202", "203"},
		"Suite":    {"301"},
	}
)

func seedCmd(a *app) *cobra.Command {
	var adminPassword string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo categories, rooms and an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := a.services()
			out := cmd.OutOrStdout()

			categoryIDs := make(map[string]int64)
			existing, err := svc.rooms.ListCategories(ctx, false)
			if err != nil {
				return err
			}
			for _, c := range existing {
				categoryIDs[c.Name] = c.ID
			}

			for i := range seedCategories {
				req := seedCategories[i]
				if _, ok := categoryIDs[req.Name]; ok {
					continue
				}
				category, err := svc.rooms.CreateCategory(ctx, &req, 0)
				if err != nil {
					return fmt.Errorf("create category %s: %w", req.Name, err)
				}
				categoryIDs[category.Name] = category.ID
				fmt.Fprintf(out, "category %s created\n", category.Name)
			}

			created := 0
			for _, req := range seedCategories {
				for _, number := range seedRooms[req.Name] {
					_, err := svc.rooms.AddRoom(ctx, &hotelService.AddRoomRequest{
						RoomNumber: number,
						CategoryID: categoryIDs[req.Name],
						Floor:      int(number[0] - '0'),
					}, 0)
					if errors.Is(err, errors.ErrRoomNumberExists) {
						continue
					}
					if err != nil {
						return fmt.Errorf("add room %s: %w", number, err)
					}
					created++
				}
			}
			fmt.Fprintf(out, "%d rooms created\n", created)

			_, err = svc.auth.CreateStaff(ctx, &authService.CreateStaffRequest{
				Username: "admin",
				Password: adminPassword,
				FullName: "系统管理员",
				Role:     models.StaffRoleAdmin,
			})
			switch {
			case errors.Is(err, errors.ErrStaffExists):
				fmt.Fprintln(out, "admin account already exists")
			case err != nil:
				return fmt.Errorf("create admin: %w", err)
			default:
				fmt.Fprintln(out, "admin account created")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&adminPassword, "admin-password", "Admin@123", "password of the seeded admin account")
	return cmd
}

func createStaffCmd(a *app) *cobra.Command {
	var req authService.CreateStaffRequest

	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			staff, err := a.services().auth.CreateStaff(cmd.Context(), &req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staff %s (id=%d, role=%s) created\n", staff.Username, staff.ID, staff.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Role, "role", models.StaffRoleReceptionist, "admin | receptionist")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// stayFlags 入住与退房日期参数
type stayFlags struct {
	checkIn  string
	checkOut string
}

func (f *stayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.checkIn, "check-in", "", "check-in date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.checkOut, "check-out", "", "check-out date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("check-in")
	_ = cmd.MarkFlagRequired("check-out")
}

func (f *stayFlags) parse() (checkIn, checkOut time.Time, err error) {
	if checkIn, err = utils.ParseDate(f.checkIn); err != nil {
		return checkIn, checkOut, fmt.Errorf("invalid --check-in: %w", err)
	}
	if checkOut, err = utils.ParseDate(f.checkOut); err != nil {
		return checkIn, checkOut, fmt.Errorf("invalid --check-out: %w", err)
	}
	return checkIn, checkOut, nil
}

func quoteCmd(a *app) *cobra.Command {
	var (
		stay       stayFlags
		categoryID int64
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print the nightly price breakdown of a stay",
		RunE: func(cmd *cobra.Command, args []string) error {
			checkIn, checkOut, err := stay.parse()
			if err != nil {
				return err
			}
			quote, err := a.services().pricing.PriceBreakdown(cmd.Context(), categoryID, checkIn, checkOut)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tPRICE\tRULE")
			for _, n := range quote.PerNight {
				fmt.Fprintf(w, "%s\t%.2f\t%s\n", n.Date, n.Price, n.Label)
			}
			fmt.Fprintf(w, "TOTAL\t%.2f\t%d nights\n", quote.Total, quote.Nights)
			return w.Flush()
		},
	}
	stay.register(cmd)
	cmd.Flags().Int64Var(&categoryID, "category", 0, "room category id")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func availabilityCmd(a *app) *cobra.Command {
	var (
		stay       stayFlags
		categoryID int64
	)

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "List rooms bookable for a stay",
		RunE: func(cmd *cobra.Command, args []string) error {
			checkIn, checkOut, err := stay.parse()
			if err != nil {
				return err
			}
			var category *int64
			if categoryID > 0 {
				category = &categoryID
			}
			rooms, err := a.services().availability.ListAvailableRooms(cmd.Context(), checkIn, checkOut, category)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROOM\tFLOOR\tCATEGORY")
			for _, r := range rooms {
				name := fmt.Sprintf("#%d", r.CategoryID)
				if r.Category != nil {
					name = r.Category.Name
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", r.RoomNumber, r.Floor, name)
			}
			fmt.Fprintf(w, "%d rooms available\n", len(rooms))
			return w.Flush()
		},
	}
	stay.register(cmd)
	cmd.Flags().Int64Var(&categoryID, "category", 0, "room category id (optional)")
	return cmd
}
