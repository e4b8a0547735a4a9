// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package dynamixel

// Built-in control tables. Only the EEPROM and RAM areas documented by the
// vendor are listed; indirect addressing is left out.
var (
	AX12A = MustControlTable("AX-12A", 12, ProtocolV1, []Register{
		{Name: "model_number", Address: 0, Width: 2, Access: ReadOnly},
		{Name: "firmware_version", Address: 2, Width: 1, Access: ReadOnly},
		{Name: "id", Address: 3, Width: 1, Access: ReadWrite},
		{Name: "baud_rate", Address: 4, Width: 1, Access: ReadWrite},
		{Name: "return_delay_time", Address: 5, Width: 1, Access: ReadWrite},
		{Name: "cw_angle_limit", Address: 6, Width: 2, Access: ReadWrite},
		{Name: "ccw_angle_limit", Address: 8, Width: 2, Access: ReadWrite},
		{Name: "temperature_limit", Address: 11, Width: 1, Access: ReadWrite},
		{Name: "min_voltage_limit", Address: 12, Width: 1, Access: ReadWrite},
		{Name: "max_voltage_limit", Address: 13, Width: 1, Access: ReadWrite},
		{Name: "max_torque", Address: 14, Width: 2, Access: ReadWrite},
		{Name: "status_return_level", Address: 16, Width: 1, Access: ReadWrite},
		{Name: "alarm_led", Address: 17, Width: 1, Access: ReadWrite},
		{Name: "shutdown", Address: 18, Width: 1, Access: ReadWrite},
		{Name: "torque_enable", Address: 24, Width: 1, Access: ReadWrite},
		{Name: "led", Address: 25, Width: 1, Access: ReadWrite},
		{Name: "cw_compliance_margin", Address: 26, Width: 1, Access: ReadWrite},
		{Name: "ccw_compliance_margin", Address: 27, Width: 1, Access: ReadWrite},
		{Name: "cw_compliance_slope", Address: 28, Width: 1, Access: ReadWrite},
		{Name: "ccw_compliance_slope", Address: 29, Width: 1, Access: ReadWrite},
		{Name: "goal_position", Address: 30, Width: 2, Access: ReadWrite},
		{Name: "moving_speed", Address: 32, Width: 2, Access: ReadWrite},
		{Name: "torque_limit", Address: 34, Width: 2, Access: ReadWrite},
		{Name: "present_position", Address: 36, Width: 2, Access: ReadOnly},
		{Name: "present_speed", Address: 38, Width: 2, Access: ReadOnly},
		{Name: "present_load", Address: 40, Width: 2, Access: ReadOnly},
		{Name: "present_voltage", Address: 42, Width: 1, Access: ReadOnly},
		{Name: "present_temperature", Address: 43, Width: 1, Access: ReadOnly},
		{Name: "registered", Address: 44, Width: 1, Access: ReadOnly},
		{Name: "moving", Address: 46, Width: 1, Access: ReadOnly},
		{Name: "lock", Address: 47, Width: 1, Access: ReadWrite},
		{Name: "punch", Address: 48, Width: 2, Access: ReadWrite},
	})

	MX28 = MustControlTable("MX-28", 29, ProtocolV1, []Register{
		{Name: "model_number", Address: 0, Width: 2, Access: ReadOnly},
		{Name: "firmware_version", Address: 2, Width: 1, Access: ReadOnly},
		{Name: "id", Address: 3, Width: 1, Access: ReadWrite},
		{Name: "baud_rate", Address: 4, Width: 1, Access: ReadWrite},
		{Name: "return_delay_time", Address: 5, Width: 1, Access: ReadWrite},
		{Name: "cw_angle_limit", Address: 6, Width: 2, Access: ReadWrite},
		{Name: "ccw_angle_limit", Address: 8, Width: 2, Access: ReadWrite},
		{Name: "temperature_limit", Address: 11, Width: 1, Access: ReadWrite},
		{Name: "min_voltage_limit", Address: 12, Width: 1, Access: ReadWrite},
		{Name: "max_voltage_limit", Address: 13, Width: 1, Access: ReadWrite},
		{Name: "max_torque", Address: 14, Width: 2, Access: ReadWrite},
		{Name: "status_return_level", Address: 16, Width: 1, Access: ReadWrite},
		{Name: "alarm_led", Address: 17, Width: 1, Access: ReadWrite},
		{Name: "shutdown", Address: 18, Width: 1, Access: ReadWrite},
		{Name: "multi_turn_offset", Address: 20, Width: 2, Access: ReadWrite},
		{Name: "resolution_divider", Address: 22, Width: 1, Access: ReadWrite},
		{Name: "torque_enable", Address: 24, Width: 1, Access: ReadWrite},
		{Name: "led", Address: 25, Width: 1, Access: ReadWrite},
		{Name: "d_gain", Address: 26, Width: 1, Access: ReadWrite},
		{Name: "i_gain", Address: 27, Width: 1, Access: ReadWrite},
		{Name: "p_gain", Address: 28, Width: 1, Access: ReadWrite},
		{Name: "goal_position", Address: 30, Width: 2, Access: ReadWrite},
		{Name: "moving_speed", Address: 32, Width: 2, Access: ReadWrite},
		{Name: "torque_limit", Address: 34, Width: 2, Access: ReadWrite},
		{Name: "present_position", Address: 36, Width: 2, Access: ReadOnly},
		{Name: "present_speed", Address: 38, Width: 2, Access: ReadOnly},
		{Name: "present_load", Address: 40, Width: 2, Access: ReadOnly},
		{Name: "present_voltage", Address: 42, Width: 1, Access: ReadOnly},
		{Name: "present_temperature", Address: 43, Width: 1, Access: ReadOnly},
		{Name: "registered", Address: 44, Width: 1, Access: ReadOnly},
		{Name: "moving", Address: 46, Width: 1, Access: ReadOnly},
		{Name: "lock", Address: 47, Width: 1, Access: ReadWrite},
		{Name: "punch", Address: 48, Width: 2, Access: ReadWrite},
		{Name: "goal_acceleration", Address: 73, Width: 1, Access: ReadWrite},
	})

	XL320 = MustControlTable("XL-320", 350, ProtocolV2, []Register{
		{Name: "model_number", Address: 0, Width: 2, Access: ReadOnly},
		{Name: "firmware_version", Address: 2, Width: 1, Access: ReadOnly},
		{Name: "id", Address: 3, Width: 1, Access: ReadWrite},
		{Name: "baud_rate", Address: 4, Width: 1, Access: ReadWrite},
		{Name: "return_delay_time", Address: 5, Width: 1, Access: ReadWrite},
		{Name: "cw_angle_limit", Address: 6, Width: 2, Access: ReadWrite},
		{Name: "ccw_angle_limit", Address: 8, Width: 2, Access: ReadWrite},
		{Name: "control_mode", Address: 11, Width: 1, Access: ReadWrite},
		{Name: "temperature_limit", Address: 12, Width: 1, Access: ReadWrite},
		{Name: "min_voltage_limit", Address: 13, Width: 1, Access: ReadWrite},
		{Name: "max_voltage_limit", Address: 14, Width: 1, Access: ReadWrite},
		{Name: "max_torque", Address: 15, Width: 2, Access: ReadWrite},
		{Name: "status_return_level", Address: 17, Width: 1, Access: ReadWrite},
		{Name: "shutdown", Address: 18, Width: 1, Access: ReadWrite},
		{Name: "torque_enable", Address: 24, Width: 1, Access: ReadWrite},
		{Name: "led", Address: 25, Width: 1, Access: ReadWrite},
		{Name: "d_gain", Address: 27, Width: 1, Access: ReadWrite},
		{Name: "i_gain", Address: 28, Width: 1, Access: ReadWrite},
		{Name: "p_gain", Address: 29, Width: 1, Access: ReadWrite},
		{Name: "goal_position", Address: 30, Width: 2, Access: ReadWrite},
		{Name: "moving_speed", Address: 32, Width: 2, Access: ReadWrite},
		{Name: "torque_limit", Address: 35, Width: 2, Access: ReadWrite},
		{Name: "present_position", Address: 37, Width: 2, Access: ReadOnly},
		{Name: "present_speed", Address: 39, Width: 2, Access: ReadOnly},
		{Name: "present_load", Address: 41, Width: 2, Access: ReadOnly},
		{Name: "present_voltage", Address: 45, Width: 1, Access: ReadOnly},
		{Name: "present_temperature", Address: 46, Width: 1, Access: ReadOnly},
		{Name: "registered", Address: 47, Width: 1, Access: ReadOnly},
		{Name: "moving", Address: 49, Width: 1, Access: ReadOnly},
		{Name: "hardware_error_status", Address: 50, Width: 1, Access: ReadOnly},
		{Name: "punch", Address: 51, Width: 2, Access: ReadWrite},
	})

	XM430W350 = MustControlTable("XM430-W350", 1020, ProtocolV2, []Register{
		{Name: "model_number", Address: 0, Width: 2, Access: ReadOnly},
		{Name: "firmware_version", Address: 6, Width: 1, Access: ReadOnly},
		{Name: "id", Address: 7, Width: 1, Access: ReadWrite},
		{Name: "baud_rate", Address: 8, Width: 1, Access: ReadWrite},
		{Name: "return_delay_time", Address: 9, Width: 1, Access: ReadWrite},
		{Name: "drive_mode", Address: 10, Width: 1, Access: ReadWrite},
		{Name: "operating_mode", Address: 11, Width: 1, Access: ReadWrite},
		{Name: "secondary_id", Address: 12, Width: 1, Access: ReadWrite},
		{Name: "protocol_type", Address: 13, Width: 1, Access: ReadWrite},
		{Name: "homing_offset", Address: 20, Width: 4, Access: ReadWrite},
		{Name: "moving_threshold", Address: 24, Width: 4, Access: ReadWrite},
		{Name: "temperature_limit", Address: 31, Width: 1, Access: ReadWrite},
		{Name: "max_voltage_limit", Address: 32, Width: 2, Access: ReadWrite},
		{Name: "min_voltage_limit", Address: 34, Width: 2, Access: ReadWrite},
		{Name: "pwm_limit", Address: 36, Width: 2, Access: ReadWrite},
		{Name: "current_limit", Address: 38, Width: 2, Access: ReadWrite},
		{Name: "velocity_limit", Address: 44, Width: 4, Access: ReadWrite},
		{Name: "max_position_limit", Address: 48, Width: 4, Access: ReadWrite},
		{Name: "min_position_limit", Address: 52, Width: 4, Access: ReadWrite},
		{Name: "shutdown", Address: 63, Width: 1, Access: ReadWrite},
		{Name: "torque_enable", Address: 64, Width: 1, Access: ReadWrite},
		{Name: "led", Address: 65, Width: 1, Access: ReadWrite},
		{Name: "status_return_level", Address: 68, Width: 1, Access: ReadWrite},
		{Name: "registered_instruction", Address: 69, Width: 1, Access: ReadOnly},
		{Name: "hardware_error_status", Address: 70, Width: 1, Access: ReadOnly},
		{Name: "velocity_i_gain", Address: 76, Width: 2, Access: ReadWrite},
		{Name: "velocity_p_gain", Address: 78, Width: 2, Access: ReadWrite},
		{Name: "position_d_gain", Address: 80, Width: 2, Access: ReadWrite},
		{Name: "position_i_gain", Address: 82, Width: 2, Access: ReadWrite},
		{Name: "position_p_gain", Address: 84, Width: 2, Access: ReadWrite},
		{Name: "goal_pwm", Address: 100, Width: 2, Access: ReadWrite},
		{Name: "goal_current", Address: 102, Width: 2, Access: ReadWrite},
		{Name: "goal_velocity", Address: 104, Width: 4, Access: ReadWrite},
		{Name: "profile_acceleration", Address: 108, Width: 4, Access: ReadWrite},
		{Name: "profile_velocity", Address: 112, Width: 4, Access: ReadWrite},
		{Name: "goal_position", Address: 116, Width: 4, Access: ReadWrite},
		{Name: "realtime_tick", Address: 120, Width: 2, Access: ReadOnly},
		{Name: "moving", Address: 122, Width: 1, Access: ReadOnly},
		{Name: "moving_status", Address: 123, Width: 1, Access: ReadOnly},
		{Name: "present_pwm", Address: 124, Width: 2, Access: ReadOnly},
		{Name: "present_current", Address: 126, Width: 2, Access: ReadOnly},
		{Name: "present_velocity", Address: 128, Width: 4, Access: ReadOnly},
		{Name: "present_position", Address: 132, Width: 4, Access: ReadOnly},
		{Name: "velocity_trajectory", Address: 136, Width: 4, Access: ReadOnly},
		{Name: "position_trajectory", Address: 140, Width: 4, Access: ReadOnly},
		{Name: "present_input_voltage", Address: 144, Width: 2, Access: ReadOnly},
		{Name: "present_temperature", Address: 146, Width: 1, Access: ReadOnly},
	})
)

func init() {
	for _, t := range []*ControlTable{AX12A, MX28, XL320, XM430W350} {
		if err := RegisterModel(t); err != nil {
			panic(err)
		}
	}
}
